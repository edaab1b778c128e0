// Copyright 2025-2026 The Tensalg Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/gotensor/tensalg/types/shapes"
)

// GobSerialize encodes the tensor (shape and contents) to the encoder.
func (t *Tensor) GobSerialize(encoder *gob.Encoder) error {
	if err := t.shape.GobSerialize(encoder); err != nil {
		return err
	}
	if err := encoder.Encode(t.flat); err != nil {
		return errors.Wrapf(err, "failed to serialize Tensor data")
	}
	return nil
}

// GobDeserialize decodes a tensor encoded by GobSerialize.
func GobDeserialize(decoder *gob.Decoder) (*Tensor, error) {
	shape, err := shapes.GobDeserialize(decoder)
	if err != nil {
		return nil, err
	}
	t := FromShape(shape)
	if err := decoder.Decode(&t.flat); err != nil {
		return nil, errors.Wrapf(err, "failed to deserialize Tensor data")
	}
	if len(t.flat) != shape.Size() {
		return nil, errors.Errorf("deserialized Tensor data has %d elements, shape %s requires %d",
			len(t.flat), shape, shape.Size())
	}
	return t, nil
}

// Save the tensor to the given file path, overwriting previous contents.
func (t *Tensor) Save(filePath string) (err error) {
	var f *os.File
	f, err = os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q to save Tensor", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close %q after saving Tensor", filePath)
		}
	}()
	w := bufio.NewWriter(f)
	if err = t.GobSerialize(gob.NewEncoder(w)); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush Tensor to %q", filePath)
	}
	return nil
}

// Load a tensor from the given file path, saved with Tensor.Save.
func Load(filePath string) (t *Tensor, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q to load Tensor", filePath)
	}
	defer func() { _ = f.Close() }()
	t, err = GobDeserialize(gob.NewDecoder(bufio.NewReader(f)))
	if err != nil && errors.Cause(err) == io.EOF {
		return nil, errors.WithMessagef(err, "file %q truncated", filePath)
	}
	return t, err
}
