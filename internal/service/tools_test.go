package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/UnendingLoop/JoinImages/internal/imageproc"
	"github.com/UnendingLoop/JoinImages/internal/model"
	"github.com/stretchr/testify/require"
)

func TestValidateQueryParams(t *testing.T) {
	tests := []struct {
		name string
		in   model.ListRequest
		want model.ListRequest
	}{
		{
			name: "defaults",
			in:   model.ListRequest{},
			want: model.ListRequest{Page: 1, Limit: 30, Sort: "created_at", Order: "DESC"},
		},
		{
			name: "by uid ascending",
			in:   model.ListRequest{Page: 3, Limit: 10, Sort: " UID ", Order: "Ascend"},
			want: model.ListRequest{Page: 3, Limit: 10, Sort: "job_uid", Order: "ASC"},
		},
		{
			name: "limit too big and injection in sort",
			in:   model.ListRequest{Page: -1, Limit: 1000, Sort: "created_at; drop table jobs", Order: "x"},
			want: model.ListRequest{Page: 1, Limit: 30, Sort: "created_at", Order: "DESC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.in
			validateQueryParams(&req)
			require.Equal(t, tt.want, req)
		})
	}
}

func TestValidateNormalizeJob(t *testing.T) {
	tests := []struct {
		name    string
		raw     *model.JobCreateData
		want    model.Job
		wantErr error
	}{
		{
			name: "resize with default limit",
			raw:  &model.JobCreateData{Operation: "Resize", Image: "x", Folder: "ignored"},
			want: model.Job{Operation: model.OpResize, SizeLimit: model.DefaultMBLimit},
		},
		{
			name: "join keeps target",
			raw:  &model.JobCreateData{Operation: "join", Image: "x", Size: 2.5, Folder: "a/b", FileName: "c.jpg", Text: "hi"},
			want: model.Job{Operation: model.OpJoin, SizeLimit: 2.5, Folder: "a/b", FileName: "c.jpg", Caption: "hi"},
		},
		{name: "unknown op", raw: &model.JobCreateData{Operation: "crop", Image: "x"}, wantErr: model.ErrIncorrectOp},
		{name: "empty image for join", raw: &model.JobCreateData{Operation: "join"}, wantErr: model.ErrEmptyJoinSource},
		{name: "empty image for resize", raw: &model.JobCreateData{Operation: "resize"}, wantErr: model.ErrEmptySource},
		{name: "dot-dot file name", raw: &model.JobCreateData{Operation: "join", Image: "x", FileName: ".."}, wantErr: model.ErrIncorrectPath},
		{name: "folder escapes", raw: &model.JobCreateData{Operation: "join", Image: "x", Folder: "a/../../b", FileName: "c.jpg"}, wantErr: model.ErrIncorrectPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.Job
			err := validateNormalizeJob(tt.raw, &got)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSniffSource(t *testing.T) {
	backend := imageproc.ImagingBackend{}

	raw, ct, err := sniffSource(backend, pngBase64(t, 3, 2))
	require.NoError(t, err)
	require.Equal(t, model.PNG, ct)
	require.NotEmpty(t, raw)

	tests := []struct {
		name    string
		encoded string
	}{
		{name: "gif header only", encoded: base64.StdEncoding.EncodeToString([]byte("GIF89a-broken"))},
		{name: "png cut after header", encoded: truncatedPNGBase64(t, 40)},
		{name: "malformed base64", encoded: "%%%"},
		{name: "plain text", encoded: base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, ct, err := sniffSource(backend, tt.encoded)
			require.ErrorIs(t, err, model.ErrDecode)
			require.Nil(t, raw)
			require.Empty(t, ct)
		})
	}
}

func TestPublicError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "decode keeps detail", in: fmt.Errorf("%w: bad header", model.ErrDecode), want: model.ErrDecode},
		{name: "resize keeps detail", in: fmt.Errorf("%w: 0x0", model.ErrResize), want: model.ErrResize},
		{name: "join source keeps detail", in: model.ErrEmptyJoinSource, want: model.ErrEmptyJoinSource},
		{name: "path keeps detail", in: fmt.Errorf("%w: ..", model.ErrIncorrectPath), want: model.ErrIncorrectPath},
		{name: "io is hidden", in: fmt.Errorf("%w: /srv/x: permission denied", model.ErrIO), want: model.ErrIO},
		{name: "unknown is 500", in: errors.New("weird"), want: model.ErrCommon500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, publicError(tt.in), tt.want)
		})
	}

	require.Equal(t, model.ErrIO, publicError(fmt.Errorf("%w: secret path", model.ErrIO)))
}
