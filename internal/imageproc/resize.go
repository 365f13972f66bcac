package imageproc

import (
	"encoding/base64"
	"fmt"
	"image"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/disintegration/imaging"
)

const bytesPerPixel = 4 // 8 бит на канал, 4 канала

// EstimatedSize approximates the raw pixel footprint of img: row bytes times height.
// It is a loop heuristic only and says nothing about the compressed size.
func EstimatedSize(img image.Image) int64 {
	var rowBytes int
	switch p := img.(type) {
	case *image.NRGBA:
		rowBytes = p.Stride
	case *image.RGBA:
		rowBytes = p.Stride
	default:
		rowBytes = img.Bounds().Dx() * bytesPerPixel
	}
	return int64(rowBytes) * int64(img.Bounds().Dy())
}

// ScaleToLimit shrinks img by model.ScaleFactor per step until EstimatedSize fits the budget.
// Every step derives the new size from the raster as it stood at the start of that step,
// truncating toward zero. A budget <= 0 means no limit.
// Returns the final raster and the number of steps taken.
func ScaleToLimit(b Backend, img image.Image, budget int64) (image.Image, int, error) {
	if !validRaster(img) {
		return nil, 0, fmt.Errorf("%w: invalid raster", model.ErrResize)
	}
	if budget <= 0 {
		return img, 0, nil
	}

	steps := 0
	for EstimatedSize(img) > budget {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		newW := int(float64(w) * model.ScaleFactor)
		newH := int(float64(h) * model.ScaleFactor)
		if newW < 1 || newH < 1 {
			return nil, steps, fmt.Errorf("%w: %dx%d -> %dx%d after %d steps, budget %d bytes",
				model.ErrResize, w, h, newW, newH, steps, budget)
		}

		img = b.Scale(img, newW, newH)
		steps++
	}

	return img, steps, nil
}

// ResizeToLimitBytes scales img into the budget and compresses it as JPEG at model.ResizeQuality.
func ResizeToLimitBytes(b Backend, img image.Image, budget int64) ([]byte, error) {
	scaled, _, err := ScaleToLimit(b, img, budget)
	if err != nil {
		return nil, err
	}
	return Compress(b, scaled, imaging.JPEG, model.ResizeQuality)
}

// ResizeToLimit is ResizeToLimitBytes with the output encoded as base64.
func ResizeToLimit(b Backend, img image.Image, budget int64) (string, error) {
	data, err := ResizeToLimitBytes(b, img, budget)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
