package imageproc

import (
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/disintegration/imaging"
)

// DecodeBase64 parses a lenient standard-base64 payload and decodes the image inside it.
// Line breaks, spaces, missing padding and a leading data-URI header are tolerated.
func DecodeBase64(b Backend, encoded string) (image.Image, error) {
	raw, err := DecodeBase64Raw(encoded)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(b, raw)
}

// DecodeBase64Raw only unwraps the base64 layer and returns the container bytes.
func DecodeBase64Raw(encoded string) ([]byte, error) {
	raw, err := decodeLenient(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64: %v", model.ErrDecode, err)
	}
	return raw, nil
}

// DecodeBytes decodes a compressed image container (JPEG/PNG/GIF) into a raster.
func DecodeBytes(b Backend, raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", model.ErrDecode)
	}

	img, err := b.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDecode, err)
	}
	if !validRaster(img) {
		return nil, fmt.Errorf("%w: zero-sized image", model.ErrDecode)
	}
	return img, nil
}

// Compress encodes the raster into a compressed container of the given format.
func Compress(b Backend, img image.Image, format imaging.Format, quality int) ([]byte, error) {
	if !validRaster(img) {
		return nil, fmt.Errorf("%w: invalid raster", model.ErrEncode)
	}

	data, err := b.Compress(img, format, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEncode, err)
	}
	return data, nil
}

// EncodeBase64 compresses img and returns it as standard base64 without line wrapping.
func EncodeBase64(b Backend, img image.Image, format imaging.Format, quality int) (string, error) {
	data, err := Compress(b, img, format, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeLenient(encoded string) ([]byte, error) {
	s := encoded
	// data:image/jpeg;base64,....
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("data URI without payload")
		}
		s = s[i+1:]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, errors.New("empty payload")
	}

	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func validRaster(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	return b.Dx() > 0 && b.Dy() > 0
}
