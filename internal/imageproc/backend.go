// Package imageproc provides the raster pipeline of the app: base64 decoding/encoding,
// size-bounded resizing and caption overlay composition.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Backend - минимальный набор операций над растром, на котором держатся ресайзер и композер
type Backend interface {
	Decode(data []byte) (image.Image, error)
	AllocateCanvas(w, h int) draw.Image
	DrawImage(dst draw.Image, src image.Image, at image.Point, op draw.Op)
	DrawText(dst draw.Image, text string, style OverlayStyle) error
	Scale(img image.Image, w, h int) image.Image
	Compress(img image.Image, format imaging.Format, quality int) ([]byte, error)
}

const (
	BackendImaging = "imaging"
	BackendNative  = "native"
)

// NewBackend picks a backend by its config name, empty name means imaging.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendImaging:
		return ImagingBackend{}, nil
	case BackendNative:
		return NativeBackend{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownBackend, name)
	}
}

// ImagingBackend - бэкенд поверх disintegration/imaging
type ImagingBackend struct{}

func (ImagingBackend) Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (ImagingBackend) AllocateCanvas(w, h int) draw.Image {
	// NRGBA нулевой - полностью прозрачный
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func (ImagingBackend) DrawImage(dst draw.Image, src image.Image, at image.Point, op draw.Op) {
	b := src.Bounds()
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(b.Size())}, src, b.Min, op)
}

func (ImagingBackend) DrawText(dst draw.Image, text string, style OverlayStyle) error {
	return drawCaption(dst, text, style)
}

// Scale - ресемплинг без фильтрации
func (ImagingBackend) Scale(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.NearestNeighbor)
}

func (ImagingBackend) Compress(img image.Image, format imaging.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(clampQuality(quality))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return 1
	case q > 100:
		return 100
	default:
		return q
	}
}
