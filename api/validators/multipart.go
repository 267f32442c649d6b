package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const multipartMemory = 8 << 20

// ParseMultipartForm bounds the body to maxBytes and parses it.
func ParseMultipartForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "upload too large").WithDetails(map[string]any{"max_bytes": tooLarge.Limit})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormValue returns the trimmed form value bounded to maxLen.
func FormValue(r *http.Request, key string, maxLen int) string {
	return CleanText(r.FormValue(key), maxLen)
}

// FormFiles returns the first file posted under each field, skipping empty slots.
func FormFiles(r *http.Request, fields ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	out := make([]*multipart.FileHeader, 0, len(fields))
	for _, field := range fields {
		headers := r.MultipartForm.File[field]
		if len(headers) == 0 || headers[0] == nil || strings.TrimSpace(headers[0].Filename) == "" {
			continue
		}
		out = append(out, headers[0])
	}
	return out
}
