package server

import (
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// contentType picks a Content-Type from the file extension and falls back to
// sniffing the content.
func contentType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return mimetype.Detect(data).String()
}
