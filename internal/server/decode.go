package server

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const maxUploadMemory = 8 << 20

var errBadBody = errors.New("server: malformed request body")

// decodeRecord reads a JSON, multipart or urlencoded body into a record
// typed for s.
func decodeRecord(c *gin.Context, s schema.Schema) (model.Record, error) {
	if isJSON(c.Request) {
		raw := map[string]any{}
		if err := c.ShouldBindJSON(&raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		return form.Normalize(s, raw), nil
	}
	values, files, err := readForm(c.Request)
	if err != nil {
		return nil, err
	}
	return form.DecodeValues(s, values, files), nil
}

func readForm(r *http.Request) (url.Values, map[string][]*multipart.FileHeader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errBadBody, err)
		}
		return r.MultipartForm.Value, r.MultipartForm.File, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return r.PostForm, nil, nil
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}
