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

import (
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// TensorMUS is the MUS serializer for Tensor values. The wire format is a
// varint-encoded shape vector followed by the raw little-endian float32
// data. Reading a tensor back from a buffer written by Marshal always
// yields an identical value.
var TensorMUS = tensorMUS{}

type tensorMUS struct{}

func (tensorMUS) Marshal(t Tensor, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(t.Shape), bs)
	for _, d := range t.Shape {
		n += varint.PositiveInt.Marshal(d, bs[n:])
	}
	n += varint.PositiveInt.Marshal(len(t.Data), bs[n:])
	for _, v := range t.Data {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func (tensorMUS) Unmarshal(bs []byte) (t Tensor, n int, err error) {
	var (
		rank, dim, count int
		n1               int
	)
	rank, n, err = varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return
	}
	// Each dimension needs at least one byte; a rank beyond that is a
	// corrupt prefix, not a real tensor.
	if rank > len(bs)-n {
		err = ErrTruncatedBuffer
		return
	}
	t.Shape = make([]int, rank)
	for i := 0; i < rank; i++ {
		dim, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		t.Shape[i] = dim
	}
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > (len(bs)-n)/4 {
		err = ErrTruncatedBuffer
		return
	}
	t.Data = make([]float32, count)
	for i := 0; i < count; i++ {
		t.Data[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (tensorMUS) Size(t Tensor) (size int) {
	size = varint.PositiveInt.Size(len(t.Shape))
	for _, d := range t.Shape {
		size += varint.PositiveInt.Size(d)
	}
	size += varint.PositiveInt.Size(len(t.Data))
	for _, v := range t.Data {
		size += raw.Float32.Size(v)
	}
	return size
}

func (tensorMUS) Skip(bs []byte) (n int, err error) {
	var (
		rank, count int
		n1          int
	)
	rank, n, err = varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return
	}
	if rank > len(bs)-n {
		err = ErrTruncatedBuffer
		return
	}
	for i := 0; i < rank; i++ {
		n1, err = varint.PositiveInt.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > (len(bs)-n)/4 {
		err = ErrTruncatedBuffer
		return
	}
	for i := 0; i < count; i++ {
		n1, err = raw.Float32.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
