// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor exposes the host tensors that parameters, gradients and
// curvature estimates are stored in.
//
// Example:
//
//	w, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	if err != nil {
//	    return err
//	}
//	rows := w.AsFloat32()
package tensor

import "github.com/born-ml/born-prune/internal/tensor"

// RawTensor is a contiguous row-major float buffer with shape information.
type RawTensor = tensor.RawTensor

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// DataType identifies the element type of a RawTensor.
type DataType = tensor.DataType

// Device represents the compute device for tensor storage.
type Device = tensor.Device

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// CPU is the host device.
const CPU = tensor.CPU

// NewRaw creates a zeroed tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape Shape) (*RawTensor, error) {
	return tensor.Zeros(shape)
}

// FromFloat32 creates a float32 tensor holding a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape)
}
