// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidTensor indicates a Tensor failed validation.
	ErrInvalidTensor = errors.New("invalid tensor")

	// ErrEmptyShape indicates a tensor has no shape dimensions.
	ErrEmptyShape = errors.New("tensor shape cannot be empty")

	// ErrNegativeDim indicates a tensor shape dimension is negative.
	ErrNegativeDim = errors.New("tensor dimension cannot be negative")

	// ErrShapeMismatch indicates a tensor's data length does not match its shape.
	ErrShapeMismatch = errors.New("tensor data length does not match shape")

	// ErrInvalidConfig indicates a pipeline configuration failed validation.
	// Configuration errors are fatal at startup and never recoverable mid-run.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTruncatedBuffer indicates a serialized tensor declares more
	// elements than its buffer can hold. Raised before any allocation, so
	// a corrupt length prefix cannot drive a giant make.
	ErrTruncatedBuffer = errors.New("buffer too small for declared length")
)
