// Package source defines where batch mode reads product images from.
package source

import (
	"context"
	"io"
	"path"
	"strings"
)

// Source lists and opens images by key.
type Source interface {
	// List returns every image key in a stable order.
	List(ctx context.Context) ([]string, error)

	// Open streams the image stored under key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config holds provider-specific settings. Providers ignore fields they
// don't use.
type Config struct {
	Provider  string
	Path      string // localfs root directory
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// IsImage reports whether name carries an extension the decoder accepts.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(path.Ext(name))]
}
