package vanilla

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

const (
	StylesheetName = "formflow.css"
	ScriptName     = "formflow.js"
)

// TemplatesFS exposes the embedded template bundle.
func TemplatesFS() fs.FS {
	return mustSub(embeddedTemplates, "templates")
}

// AssetsFS exposes the stylesheet and script so callers can serve them.
func AssetsFS() fs.FS {
	return mustSub(embeddedAssets, "assets")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
