package imageproc

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

var opaque = color.NRGBA{R: 100, G: 100, B: 200, A: 255}

func TestEstimatedSize(t *testing.T) {
	require.Equal(t, int64(4_000_000), EstimatedSize(testImage(t, 1000, 1000, opaque)))
	require.Equal(t, int64(120*4*30), EstimatedSize(image.NewRGBA(image.Rect(0, 0, 120, 30))))

	// decoded JPEG has no RGBA stride, estimated as 4 bytes per pixel
	jpg, err := DecodeBytes(ImagingBackend{}, testImageBytes(t, 50, 20, imaging.JPEG))
	require.NoError(t, err)
	require.Equal(t, int64(50*20*4), EstimatedSize(jpg))
}

func TestScaleToLimit(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		budget    int64
		wantW     int
		wantH     int
		wantSteps int
		wantErr   error
	}{
		{
			name: "under budget", w: 100, h: 100, budget: model.BudgetFromMB(model.DefaultMBLimit),
			wantW: 100, wantH: 100, wantSteps: 0,
		},
		{
			name: "exactly on budget is kept", w: 512, h: 512, budget: 512 * 512 * 4,
			wantW: 512, wantH: 512, wantSteps: 0,
		},
		{
			name: "1000x1000 into one MB lands on the boundary", w: 1000, h: 1000, budget: model.MegabytesMultiplier,
			wantW: 512, wantH: 512, wantSteps: 3,
		},
		{
			name: "one byte below the boundary takes another step", w: 1000, h: 1000, budget: model.MegabytesMultiplier - 1,
			wantW: 409, wantH: 409, wantSteps: 4,
		},
		{
			name: "zero budget means no scaling", w: 300, h: 200, budget: 0,
			wantW: 300, wantH: 200, wantSteps: 0,
		},
		{
			name: "negative budget means no scaling", w: 300, h: 200, budget: -10,
			wantW: 300, wantH: 200, wantSteps: 0,
		},
		{
			name: "non-uniform truncation", w: 101, h: 53, budget: 101 * 53 * 4 / 2,
			wantW: 64, wantH: 33, wantSteps: 2,
		},
		{
			name: "tiny image cannot fit", w: 2, h: 2, budget: 1,
			wantErr: model.ErrResize,
		},
		{
			name: "thin strip collapses height first", w: 1000, h: 10, budget: 100,
			wantErr: model.ErrResize,
		},
	}

	backends := map[string]Backend{"imaging": ImagingBackend{}, "native": NativeBackend{}}

	for bName, b := range backends {
		for _, tt := range tests {
			t.Run(bName+"/"+tt.name, func(t *testing.T) {
				src := testImage(t, tt.w, tt.h, opaque)

				res, steps, err := ScaleToLimit(b, src, tt.budget)

				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
					require.Nil(t, res)
					return
				}

				require.NoError(t, err)
				require.Equal(t, tt.wantSteps, steps)
				require.Equal(t, tt.wantW, res.Bounds().Dx())
				require.Equal(t, tt.wantH, res.Bounds().Dy())
				if tt.budget > 0 {
					require.LessOrEqual(t, EstimatedSize(res), tt.budget)
				}
			})
		}
	}
}

func TestScaleToLimit_AlwaysTerminates(t *testing.T) {
	src := testImage(t, 97, 61, opaque)

	for budget := int64(1); budget < EstimatedSize(src); budget *= 3 {
		res, _, err := ScaleToLimit(ImagingBackend{}, src, budget)
		if err != nil {
			require.ErrorIs(t, err, model.ErrResize)
			continue
		}
		require.LessOrEqual(t, EstimatedSize(res), budget)
		require.GreaterOrEqual(t, res.Bounds().Dx(), 1)
		require.GreaterOrEqual(t, res.Bounds().Dy(), 1)
	}
}

func TestScaleToLimit_InvalidRaster(t *testing.T) {
	_, _, err := ScaleToLimit(ImagingBackend{}, nil, 100)
	require.ErrorIs(t, err, model.ErrResize)
}

func TestResizeToLimit_UnderBudgetIsReencoded(t *testing.T) {
	srcB64 := testImageBase64(t, 60, 40, imaging.PNG)
	src, err := DecodeBase64(ImagingBackend{}, srcB64)
	require.NoError(t, err)

	out, err := ResizeToLimit(ImagingBackend{}, src, model.BudgetFromMB(model.DefaultMBLimit))
	require.NoError(t, err)
	require.NotEqual(t, srcB64, out)

	raw, err := base64.StdEncoding.DecodeString(out)
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)

	img, err := DecodeBytes(ImagingBackend{}, raw)
	require.NoError(t, err)
	require.Equal(t, 60, img.Bounds().Dx())
	require.Equal(t, 40, img.Bounds().Dy())
}

func TestResizeToLimit_OverBudget(t *testing.T) {
	src := testImage(t, 1000, 1000, opaque)

	out, err := ResizeToLimit(ImagingBackend{}, src, model.MegabytesMultiplier)
	require.NoError(t, err)

	img, err := DecodeBase64(ImagingBackend{}, out)
	require.NoError(t, err)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())
}

func TestResizeToLimit_Degenerate(t *testing.T) {
	out, err := ResizeToLimit(ImagingBackend{}, testImage(t, 3, 3, opaque), 2)
	require.ErrorIs(t, err, model.ErrResize)
	require.Empty(t, out)
}
