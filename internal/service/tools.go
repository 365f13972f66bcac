package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/model"
)

var formatCType = map[string]string{
	"jpeg": model.JPEG,
	"png":  model.PNG,
	"gif":  model.GIF,
}

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// сортировка подставляется в запрос как есть, поэтому только из белого списка
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "job_uid"
	default:
		req.Sort = "created_at"
	}

	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту "новое-выше"
	}
}

func validateNormalizeJob(raw *model.JobCreateData, clean *model.Job) error {
	if raw == nil {
		return model.ErrEmptySource
	}

	clean.Operation = model.Operation(strings.ToLower(strings.TrimSpace(raw.Operation)))
	if !model.OperationsMap[clean.Operation] {
		return model.ErrIncorrectOp
	}

	if raw.Image == "" {
		if clean.Operation == model.OpJoin {
			return model.ErrEmptyJoinSource
		}
		return model.ErrEmptySource
	}

	clean.SizeLimit = raw.Size
	if clean.SizeLimit <= 0 {
		clean.SizeLimit = model.DefaultMBLimit
	}

	if clean.Operation == model.OpJoin {
		if err := imageproc.ValidateFileName(raw.FileName); err != nil {
			return err
		}
		// корень фиктивный: проверяем только, что папка не выходит за его пределы
		if _, err := imageproc.ResolveFolder("/storage", raw.Folder); err != nil {
			return err
		}
		clean.Folder = raw.Folder
		clean.FileName = raw.FileName
		clean.Caption = raw.Text
	}

	return nil
}

// sniffSource unwraps base64, decodes the whole raster and reports the container content-type
func sniffSource(b imageproc.Backend, encoded string) ([]byte, string, error) {
	raw, err := imageproc.DecodeBase64Raw(encoded)
	if err != nil {
		return nil, "", err
	}

	// заголовка мало: битый или обрезанный файл должен отсекаться до записи в хранилище
	if _, err := imageproc.DecodeBytes(b, raw); err != nil {
		return nil, "", err
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", model.ErrDecode, err)
	}

	cType, ok := formatCType[format]
	if !ok {
		return nil, "", fmt.Errorf("%w: unsupported format %q", model.ErrDecode, format)
	}
	return raw, cType, nil
}

// publicError keeps client-facing detail for input errors and hides internals of server-side failures
func publicError(err error) error {
	switch {
	case errors.Is(err, model.ErrDecode),
		errors.Is(err, model.ErrResize),
		errors.Is(err, model.ErrIncorrectPath),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyJoinSource):
		return err
	case errors.Is(err, model.ErrIO):
		return model.ErrIO
	case errors.Is(err, model.ErrEncode):
		return model.ErrEncode
	case errors.Is(err, model.ErrDraw):
		return model.ErrDraw
	default:
		return model.ErrCommon500
	}
}
