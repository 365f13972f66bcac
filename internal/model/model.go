// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type (
	Status    string
	Operation string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

const (
	OpJoin   Operation = "join"
	OpResize Operation = "resize"
)

var OperationsMap = map[Operation]bool{
	OpJoin:   true,
	OpResize: true,
}

//---------------------

const (
	// CaptureSuccess - токен, который join-операция отдает бриджу при успехе
	CaptureSuccess = "Capture success"

	MegabytesMultiplier = 1048576
	DefaultMBLimit      = 5.0
	ScaleFactor         = 0.8
	ResizeQuality       = 90
	ComposeQuality      = 100
)

// BudgetFromMB converts a size limit given in "MB" units into a byte budget,
// saturating at the int64 range.
func BudgetFromMB(limitMB float64) int64 {
	v := limitMB * MegabytesMultiplier
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

//---------------------

// JoinRequest - аргументы joinImagesFromData в порядке бриджа
type JoinRequest struct {
	Image    string  `json:"image"`
	Size     float64 `json:"size"` // не используется, оставлен для совместимости с клиентами
	Folder   string  `json:"folder"`
	FileName string  `json:"filename"`
	Text     string  `json:"text"`
}

type JoinResult struct {
	Result string `json:"result"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
}

// ResizeRequest - аргументы resizeImageFromData
type ResizeRequest struct {
	Image string  `json:"image"`
	Size  float64 `json:"size"`
}

type ResizeResult struct {
	Image string `json:"image"`
}

// PersistedFile - файл, созданный композером
type PersistedFile struct {
	Folder   string `json:"folder"`
	FileName string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Data     []byte `json:"-"`
}

//---------------------

type Job struct {
	UID       uuid.UUID   `json:"uid"`
	SourceKey string      `json:"-"`
	ResultKey string      `json:"-"`
	Operation Operation   `json:"operation"`
	SizeLimit float64     `json:"size_limit_mb"`
	Folder    string      `json:"folder,omitempty"`
	FileName  string      `json:"filename,omitempty"`
	Caption   string      `json:"text,omitempty"`
	Status    Status      `json:"status,omitempty"`
	ErrMsg    StringSlice `json:"error,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

type JobCreateData struct {
	Operation string  `json:"operation"`
	Image     string  `json:"image"`
	Size      float64 `json:"size"`
	Folder    string  `json:"folder"`
	FileName  string  `json:"filename"`
	Text      string  `json:"text"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500       error = errors.New("something went wrong. Try again later")                   // 500
	ErrIncorrectQuery  error = errors.New("incorrect query parameters")                              // 400
	ErrIncorrectID     error = errors.New("incorrect job UUID")                                      // 400
	ErrJobNotFound     error = errors.New("specified job UUID doesn't exist")                        // 404
	ErrResultNotReady  error = errors.New("requested job is not processed yet")                      // 404
	ErrIncorrectOp     error = errors.New("operation is not supported")                              // 400
	ErrEmptySource     error = errors.New("Parameter 'image' is required.")                          // 400
	ErrEmptyJoinSource error = errors.New("Parameters 'firstImage' and 'secondImage' are required.") // 400
	ErrIncorrectPath   error = errors.New("incorrect folder or file name")                           // 400
	ErrIncorrectStatus error = errors.New("incorrect status provided")                               // 400
	ErrDecode          error = errors.New("failed to decode image data")                             // 400
	ErrResize          error = errors.New("image cannot be scaled below 1 pixel")                    // 422
	ErrEncode          error = errors.New("failed to encode image")                                  // 500
	ErrDraw            error = errors.New("failed to draw caption")                                  // 500
	ErrIO              error = errors.New("failed to persist image file")                            // 500
	ErrUnknownBackend  error = errors.New("unknown image backend")                                   // startup
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	GIF:  ".gif",
}

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}
