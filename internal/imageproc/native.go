package imageproc

import (
	"image"

	"github.com/nfnt/resize"
)

// NativeBackend scales with nfnt/resize and reuses ImagingBackend for everything else.
type NativeBackend struct {
	ImagingBackend
}

func (NativeBackend) Scale(img image.Image, w, h int) image.Image {
	return resize.Resize(uint(w), uint(h), img, resize.NearestNeighbor)
}
