// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

// Package xslices holds the small generic slice helpers used across the
// engine, complementing the standard library slices package.
package xslices

import (
	"golang.org/x/exp/constraints"
)

// Number represents the slice element types the numeric helpers work on.
type Number interface {
	constraints.Integer | constraints.Float
}

// Iota returns a slice of the given count, filled with
// start, start+1, ..., start+count-1.
func Iota[T Number](start T, count int) (slice []T) {
	slice = make([]T, count)
	value := start
	for ii := range slice {
		slice[ii] = value
		value += 1
	}
	return
}

// SliceWithValue returns a slice of the given count filled with the value.
func SliceWithValue[T any](count int, value T) (slice []T) {
	slice = make([]T, count)
	for ii := range slice {
		slice[ii] = value
	}
	return
}

// FillSlice sets every element of the slice to the given value.
func FillSlice[T any](slice []T, value T) {
	for ii := range slice {
		slice[ii] = value
	}
}

// Copy returns a newly allocated copy of the slice.
func Copy[T any](slice []T) (c []T) {
	c = make([]T, len(slice))
	copy(c, slice)
	return
}

// At returns the element at the given index, where negative indices count
// from the end of the slice.
func At[T any](slice []T, index int) T {
	if index < 0 {
		index += len(slice)
	}
	return slice[index]
}

// Last returns the last element of the slice.
func Last[T any](slice []T) T {
	return At(slice, -1)
}

// Map applies fn to each element of in, returning the slice of results.
func Map[In, Out any](in []In, fn func(In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, value := range in {
		out[ii] = fn(value)
	}
	return
}

// Keys returns the indices of slice elements for which fn returns true.
func Keys[T any](slice []T, fn func(T) bool) (indices []int) {
	for ii, value := range slice {
		if fn(value) {
			indices = append(indices, ii)
		}
	}
	return
}
