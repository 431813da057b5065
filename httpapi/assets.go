package httpapi

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var embeddedAssets embed.FS

var assetsFS fs.FS

func init() {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		assetsFS = embeddedAssets
		return
	}
	assetsFS = sub
}

// Asset returns an embedded UI asset such as "console.css".
func Asset(name string) ([]byte, error) {
	return fs.ReadFile(assetsFS, name)
}
