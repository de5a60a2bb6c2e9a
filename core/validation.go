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

import "fmt"

// ValidateTensor validates a Tensor according to domain rules.
//
// Validation rules:
//   - Shape must have at least one dimension
//   - No dimension may be negative
//   - Data length must equal the product of the shape dimensions
func ValidateTensor(t *Tensor) error {
	if t == nil {
		return fmt.Errorf("%w: tensor is nil", ErrInvalidTensor)
	}

	if len(t.Shape) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTensor, ErrEmptyShape)
	}

	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidTensor, ErrNegativeDim)
		}
	}

	if len(t.Data) != t.NumElements() {
		return fmt.Errorf("%w: %w (shape implies %d elements, data has %d)",
			ErrInvalidTensor, ErrShapeMismatch, t.NumElements(), len(t.Data))
	}

	return nil
}
