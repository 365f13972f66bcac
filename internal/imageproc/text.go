package imageproc

import (
	"fmt"
	"image"
	"sync"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	captionFont     *truetype.Font
	captionFontErr  error
	captionFontOnce sync.Once
)

// шрифт парсится один раз и дальше только читается
func loadCaptionFont() (*truetype.Font, error) {
	captionFontOnce.Do(func() {
		captionFont, captionFontErr = freetype.ParseFont(goregular.TTF)
	})
	return captionFont, captionFontErr
}

func drawCaption(dst draw.Image, text string, style OverlayStyle) error {
	if text == "" {
		return nil
	}

	f, err := loadCaptionFont()
	if err != nil {
		return fmt.Errorf("%w: parse font: %v", model.ErrDraw, err)
	}

	c := freetype.NewContext()
	c.SetDPI(style.DPI)
	c.SetFont(f)
	c.SetFontSize(style.FontSize)
	c.SetClip(dst.Bounds())
	c.SetDst(dst)
	c.SetSrc(image.NewUniform(style.Color))
	c.SetHinting(font.HintingFull)

	// якорь - базовая линия текста, а не верхний левый угол
	if _, err := c.DrawString(text, freetype.Pt(style.Anchor.X, style.Anchor.Y)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrDraw, err)
	}
	return nil
}
