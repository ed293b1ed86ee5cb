package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/dtroode/threatgate/internal/apierror"
)

// decodeBody fills dst from a JSON or form-encoded body. Form fields are
// looked up by the names in fields.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, fields func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if mediaType == "multipart/form-data" {
			if err := r.ParseMultipartForm(maxBytes); err != nil {
				return apierror.NewErrInvalidRequest(err)
			}
		} else if err := r.ParseForm(); err != nil {
			return apierror.NewErrInvalidRequest(err)
		}
		fields(r.PostForm.Get)
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apierror.NewErrInvalidRequest(err)
	}

	return nil
}
