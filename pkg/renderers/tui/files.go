package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-formflow/pkg/model"
)

// InspectFile describes a local file the way a browser describes an upload:
// base name, size and sniffed MIME type.
func InspectFile(path string) (model.FileHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.FileHandle{}, err
	}
	if info.IsDir() {
		return model.FileHandle{}, fmt.Errorf("%s is a directory", path)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return model.FileHandle{}, err
	}
	return model.FileHandle{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MIMEType: mtype.String(),
	}, nil
}
