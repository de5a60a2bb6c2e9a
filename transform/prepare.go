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


package transform

import (
	"bytes"
	"fmt"
	"image"

	// Register decoders for the accepted source formats.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/poiesic/latentcache/core"
)

// StandardPreparer decodes an image, center-crops it to a square, resizes
// it to the target resolution, and converts it to a CHW float32 tensor
// with values in [-1, 1].
type StandardPreparer struct {
	resolution int
}

var _ Preparer = (*StandardPreparer)(nil)

// NewStandardPreparer creates a preparer targeting a square output of
// resolution x resolution pixels.
func NewStandardPreparer(resolution int) (*StandardPreparer, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}
	return &StandardPreparer{resolution: resolution}, nil
}

// Resolution returns the configured target edge length in pixels.
func (p *StandardPreparer) Resolution() int {
	return p.resolution
}

// Prepare converts raw image bytes into a [3, resolution, resolution]
// tensor. Decode failures are reported as ErrDecodeFailed so callers can
// distinguish bad source items from systemic errors.
func (p *StandardPreparer) Prepare(data []byte) (core.Tensor, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return core.Tensor{}, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}

	img = centerCrop(img)
	img = resize(img, p.resolution)

	return toTensor(img), nil
}

// centerCrop returns the largest centered square region of img.
func centerCrop(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	edge := min(w, h)
	x0 := b.Min.X + (w-edge)/2
	y0 := b.Min.Y + (h-edge)/2
	rect := image.Rect(x0, y0, x0+edge, y0+edge)

	cropped := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Copy(cropped, image.Point{}, img, rect, draw.Src, nil)
	return cropped
}

// resize scales img to a square of the given edge length using CatmullRom
// interpolation.
func resize(img image.Image, edge int) image.Image {
	b := img.Bounds()
	if b.Dx() == edge && b.Dy() == edge {
		return img
	}

	scaled := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
	return scaled
}

// toTensor converts an image into CHW layout with each channel value
// mapped from [0, 255] to [-1, 1].
func toTensor(img image.Image) core.Tensor {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	t := core.Tensor{
		Shape: []int{3, h, w},
		Data:  make([]float32, 3*h*w),
	}

	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			idx := y*w + x
			t.Data[idx] = float32(r>>8)/127.5 - 1
			t.Data[plane+idx] = float32(g>>8)/127.5 - 1
			t.Data[2*plane+idx] = float32(bl>>8)/127.5 - 1
		}
	}
	return t
}
