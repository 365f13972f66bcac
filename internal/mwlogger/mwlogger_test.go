package mwlogger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestNewMWLogger(t *testing.T) {
	tests := []struct {
		name      string
		reqID     string
		checkEcho bool
	}{
		{name: "keeps incoming request id", reqID: "abc-123", checkEcho: true},
		{name: "generates request id", reqID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCtx context.Context
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCtx = r.Context()
				w.WriteHeader(http.StatusTeapot)
			})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.reqID != "" {
				req.Header.Set(RequestIDHeader, tt.reqID)
			}
			w := httptest.NewRecorder()

			NewMWLogger(next).ServeHTTP(w, req)

			require.Equal(t, http.StatusTeapot, w.Code)
			require.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.checkEcho {
				require.Equal(t, tt.reqID, w.Header().Get(RequestIDHeader))
			}

			_, ok := gotCtx.Value(loggerCtxKey{}).(zlog.Zerolog)
			require.True(t, ok)
		})
	}
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	require.NotPanics(t, func() {
		l := LoggerFromContext(context.Background())
		l.Info().Msg("fallback logger works")
	})
}
