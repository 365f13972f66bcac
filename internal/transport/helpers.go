package transport

import (
	"errors"
	"io"

	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/wb-go/wbf/zlog"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return 500
	case errors.Is(err, model.ErrJobNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return 404
	case errors.Is(err, model.ErrResize):
		return 422
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectOp),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrEmptyJoinSource),
		errors.Is(err, model.ErrIncorrectPath),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrDecode):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Handler failed to close fileflow")
	}
}
