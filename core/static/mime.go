package static

import (
	"path/filepath"

	"github.com/searchktools/dory/core/http"
)

// MimeTypeOf derives a MIME type from the path's extension alone.
func MimeTypeOf(path string) http.MimeType {
	switch filepath.Ext(path) {
	case ".png":
		return http.MimeImagePng
	case ".html", ".htm":
		return http.MimeTextHTML
	case ".css":
		return http.MimeTextCSS
	case ".js", ".mjs":
		return http.MimeTextJavascript
	case ".json", ".map":
		return http.MimeApplicationJSON
	case ".ico":
		return http.MimeImageIco
	case ".md":
		return http.MimeTextMarkdown
	case ".txt":
		return http.MimeTextPlain
	default:
		return http.MimeApplicationOctetStream
	}
}

// CharsetOf returns utf-8 for text-like types and "" for binary ones.
func CharsetOf(mime http.MimeType) string {
	if mime.IsText() {
		return http.CharsetUTF8
	}
	return ""
}
