package form_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func TestSelection(t *testing.T) {
	got := form.Selection([]string{" Go", "React", "Go", "", "UI/UX"})
	if diff := cmp.Diff([]string{"Go", "React", "UI/UX"}, got); diff != "" {
		t.Fatalf("selection mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeValues(t *testing.T) {
	s := testsupport.Form(t, "freelance").Schema()
	values := url.Values{
		"fullName":     {"Ada"},
		"age":          {"36"},
		"hoursPerWeek": {"lots"},
		"skills":       {"React", "React", "Node.js"},
		"remoteWork":   {"on"},
		"ignored":      {"x"},
	}

	got := form.DecodeValues(s, values, nil)

	want := model.Record{
		"fullName":        "Ada",
		"email":           "",
		"password":        "",
		"age":             float64(36),
		"role":            "",
		"skills":          []string{"React", "Node.js"},
		"experienceLevel": "",
		"remoteWork":      true,
		"startDate":       "",
		"hoursPerWeek":    "lots",
		"bio":             "",
		"profileImage":    []model.FileHandle{},
		"newsletter":      false,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded record mismatch (-want +got):\n%s", diff)
	}
}

func TestFileHandles_UsesHeaderOrSniffs(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="profileImage"; filename="me.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte("jpeg-bytes"))

	sniffed, err := writer.CreateFormFile("profileImage", "me.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	sniffed.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, "/", &body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := form.FileHandles(req.MultipartForm.File["profileImage"])
	want := []model.FileHandle{
		{Name: "me.jpg", Size: 10, MIMEType: "image/jpeg"},
		{Name: "me.png", Size: 12, MIMEType: "image/png"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("file handles mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_JSONShapes(t *testing.T) {
	s := testsupport.Form(t, "freelance").Schema()
	got := form.Normalize(s, map[string]any{
		"skills":       []any{"React", "React"},
		"profileImage": map[string]any{"name": "a.png", "size": float64(1024), "type": "image/png"},
		"age":          float64(20),
		"unknown":      true,
	})
	want := model.Record{
		"skills":       []string{"React"},
		"profileImage": []model.FileHandle{{Name: "a.png", Size: 1024, MIMEType: "image/png"}},
		"age":          float64(20),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("normalized mismatch (-want +got):\n%s", diff)
	}
}
