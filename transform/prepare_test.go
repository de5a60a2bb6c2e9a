package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/poiesic/latentcache/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePNG renders a w x h image filled with a single color.
func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewStandardPreparer_InvalidResolution(t *testing.T) {
	_, err := NewStandardPreparer(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidResolution))
}

func TestStandardPreparer_Shape(t *testing.T) {
	preparer, err := NewStandardPreparer(16)
	require.NoError(t, err)

	tests := []struct {
		name string
		w, h int
	}{
		{"square", 16, 16},
		{"wide", 64, 32},
		{"tall", 10, 40},
		{"upscale", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodePNG(t, tt.w, tt.h, color.RGBA{R: 200, G: 100, B: 50, A: 255})

			tensor, err := preparer.Prepare(data)
			require.NoError(t, err)
			assert.Equal(t, []int{3, 16, 16}, tensor.Shape)
			assert.Len(t, tensor.Data, 3*16*16)
			require.NoError(t, core.ValidateTensor(&tensor))
		})
	}
}

func TestStandardPreparer_ValueRange(t *testing.T) {
	preparer, err := NewStandardPreparer(8)
	require.NoError(t, err)

	tests := []struct {
		name string
		fill color.Color
		want float32
	}{
		{"black maps to -1", color.RGBA{A: 255}, -1},
		{"white maps to 1", color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := preparer.Prepare(encodePNG(t, 8, 8, tt.fill))
			require.NoError(t, err)

			for _, v := range tensor.Data {
				assert.InDelta(t, tt.want, v, 0.01)
			}
		})
	}
}

func TestStandardPreparer_Deterministic(t *testing.T) {
	preparer, err := NewStandardPreparer(8)
	require.NoError(t, err)

	data := encodePNG(t, 20, 12, color.RGBA{R: 90, G: 120, B: 30, A: 255})

	a, err := preparer.Prepare(data)
	require.NoError(t, err)
	b, err := preparer.Prepare(data)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
}

func TestStandardPreparer_DecodeFailure(t *testing.T) {
	preparer, err := NewStandardPreparer(8)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"not an image", []byte("definitely not pixels")},
		{"empty", nil},
		{"truncated png", encodePNG(t, 8, 8, color.RGBA{A: 255})[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := preparer.Prepare(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecodeFailed))
		})
	}
}
