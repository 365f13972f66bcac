package imageproc

import (
	"image"
	"math"

	"github.com/UnendingLoop/JoinImages/internal/model"
)

// Pipeline binds a backend, the overlay style and the storage root for composed files.
// It holds no per-call state, every call works on its own rasters.
type Pipeline struct {
	Backend     Backend
	Style       OverlayStyle
	StorageRoot string
}

func NewPipeline(b Backend, style OverlayStyle, root string) Pipeline {
	return Pipeline{Backend: b, Style: style, StorageRoot: root}
}

// JoinFromData: decode, compose caption, save under StorageRoot/folder/fileName.
// sizeLimitMB is accepted for client compatibility and not applied to the composed file.
func (p Pipeline) JoinFromData(encoded string, sizeLimitMB float64, folder, fileName, caption string) (*model.PersistedFile, error) {
	img, err := DecodeBase64(p.Backend, encoded)
	if err != nil {
		return nil, err
	}
	return p.JoinRaster(img, folder, fileName, caption)
}

func (p Pipeline) JoinRaster(img image.Image, folder, fileName, caption string) (*model.PersistedFile, error) {
	dir, err := ResolveFolder(p.StorageRoot, folder)
	if err != nil {
		return nil, err
	}
	return ComposeAndSave(p.Backend, img, dir, fileName, caption, p.Style)
}

// ResizeFromData: decode, fit into the budget, return base64 JPEG.
func (p Pipeline) ResizeFromData(encoded string, sizeLimitMB float64) (string, error) {
	img, err := DecodeBase64(p.Backend, encoded)
	if err != nil {
		return "", err
	}
	return ResizeToLimit(p.Backend, img, model.BudgetFromMB(normalizeLimit(sizeLimitMB)))
}

// ResizeRaster returns the compressed JPEG bytes instead of base64.
func (p Pipeline) ResizeRaster(img image.Image, sizeLimitMB float64) ([]byte, error) {
	return ResizeToLimitBytes(p.Backend, img, model.BudgetFromMB(normalizeLimit(sizeLimitMB)))
}

// незаданный или неположительный лимит заменяется дефолтом 5 MB
func normalizeLimit(limitMB float64) float64 {
	if limitMB <= 0 || math.IsNaN(limitMB) {
		return model.DefaultMBLimit
	}
	return limitMB
}
