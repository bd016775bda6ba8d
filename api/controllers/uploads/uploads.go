package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/angelmondragon/taskrent-backend/api/middleware"
	"github.com/angelmondragon/taskrent-backend/api/responses"
	pkgerrors "github.com/angelmondragon/taskrent-backend/pkg/errors"
	"github.com/angelmondragon/taskrent-backend/pkg/logger"
	"github.com/angelmondragon/taskrent-backend/pkg/storage/gcs"
	"github.com/angelmondragon/taskrent-backend/pkg/types"
)

const (
	formField        = "file"
	defaultPrefix    = "tickets"
	defaultMaxBytes  = 10 << 20
	multipartSlackKB = 64
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type Uploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (*gcs.ObjectInfo, error)
}

var _ Uploader = (*gcs.Client)(nil)

// Params configures the image upload handler.
type Params struct {
	Uploader Uploader
	Prefix   string
	MaxBytes int64
	Logger   *logger.Logger
	Now      func() time.Time
}

// Image accepts one multipart image, checks its real content type and stores
// it under prefix/yyyy/mm/dd/<uuid>.<ext>.
func Image(p Params) http.HandlerFunc {
	prefix := strings.Trim(strings.TrimSpace(p.Prefix), "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	logg := p.Logger

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if p.Uploader == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "uploads are not configured"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlackKB<<10)
		file, _, err := r.FormFile(formField)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required").
				WithDetails(map[string]any{"field": formField}))
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image"))
			return
		}
		if int64(len(data)) > maxBytes {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image too large").
				WithDetails(map[string]any{"max_bytes": maxBytes}))
			return
		}
		if len(data) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "image is empty"))
			return
		}

		detected := mimetype.Detect(data)
		if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
				WithDetails(map[string]any{"content_type": detected.String()}))
			return
		}

		object := objectName(prefix, now().UTC(), detected.Extension())
		info, err := p.Uploader.Upload(ctx, object, detected.String(), bytes.NewReader(data))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"object":  info.Name,
				"bytes":   len(data),
				"user_id": middleware.UserIDFromContext(ctx),
			}), "upload.stored")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, types.UploadResult{URL: info.PublicURL})
	}
}

func objectName(prefix string, at time.Time, ext string) string {
	return path.Join(prefix, at.Format("2006/01/02"), fmt.Sprintf("%s%s", uuid.NewString(), ext))
}
