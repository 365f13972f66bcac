package imageproc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// OverlayStyle - неизменяемые параметры отрисовки подписи и сохранения результата
type OverlayStyle struct {
	Color       color.Color
	StrokeWidth float64 // влияет только на обводку, подпись рисуется заливкой
	FontSize    float64
	DPI         float64
	Anchor      image.Point // базовая линия, не зависит от размеров картинки
	Blend       draw.Op
	Format      imaging.Format
	Quality     int
}

func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		Color:       color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		StrokeWidth: 100,
		FontSize:    200,
		DPI:         72,
		Anchor:      image.Pt(30, 40),
		Blend:       draw.Over,
		Format:      imaging.JPEG,
		Quality:     model.ComposeQuality,
	}
}

// Compose draws img onto a blank transparent canvas of the same size and puts the caption
// at style.Anchor. Captions may get clipped on small images.
func Compose(b Backend, img image.Image, caption string, style OverlayStyle) (image.Image, error) {
	if !validRaster(img) {
		return nil, fmt.Errorf("%w: invalid raster", model.ErrEncode)
	}

	bounds := img.Bounds()
	canvas := b.AllocateCanvas(bounds.Dx(), bounds.Dy())
	b.DrawImage(canvas, img, image.Point{}, style.Blend)

	if err := b.DrawText(canvas, caption, style); err != nil {
		return nil, err
	}
	return canvas, nil
}

// ComposeAndSave composes the caption overlay and writes it to folder/fileName,
// creating the folder tree and overwriting an existing file.
func ComposeAndSave(b Backend, img image.Image, folder, fileName, caption string, style OverlayStyle) (*model.PersistedFile, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}

	composed, err := Compose(b, img, caption, style)
	if err != nil {
		return nil, err
	}

	data, err := Compress(b, composed, style.Format, style.Quality)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create folder %q: %v", model.ErrIO, folder, err)
	}

	// пишем во временный файл рядом и подменяем цель только целым файлом
	path := filepath.Join(folder, fileName)
	if err := writeFileReplace(path, data); err != nil {
		return nil, err
	}

	return &model.PersistedFile{
		Folder:   folder,
		FileName: fileName,
		Path:     path,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

// writeFileReplace writes data to a temp file in the target folder and renames it over path.
// On any failure the temp file is removed and an existing file at path stays untouched.
func writeFileReplace(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file for %q: %v", model.ErrIO, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write file %q: %v", model.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close file %q: %v", model.ErrIO, path, err)
	}
	// CreateTemp создает файл с правами 0600
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod file %q: %v", model.ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: replace file %q: %v", model.ErrIO, path, err)
	}
	return nil
}

// ValidateFileName rejects empty names and names that could leave the target folder.
func ValidateFileName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: file name %q", model.ErrIncorrectPath, name)
	}
	return nil
}

// ResolveFolder joins folder under root and rejects anything that escapes root.
func ResolveFolder(root, folder string) (string, error) {
	if root == "" {
		return "", errors.New("empty storage root")
	}
	full := filepath.Join(root, folder)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: folder %q", model.ErrIncorrectPath, folder)
	}
	return full, nil
}

// RelativeToRoot returns p relative to root with forward slashes, for use as an object key.
func RelativeToRoot(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside %q", model.ErrIncorrectPath, p, root)
	}
	return filepath.ToSlash(rel), nil
}
