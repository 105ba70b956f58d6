package http

// MimeType is a Content-Type value without parameters.
type MimeType string

const (
	MimeApplicationJSON        MimeType = "application/json"
	MimeApplicationOctetStream MimeType = "application/octet-stream"
	MimeImageIco               MimeType = "image/vnd.microsoft.icon"
	MimeImagePng               MimeType = "image/png"
	MimeTextCSS                MimeType = "text/css"
	MimeTextHTML               MimeType = "text/html"
	MimeTextJavascript         MimeType = "text/javascript"
	MimeTextMarkdown           MimeType = "text/markdown"
	MimeTextPlain              MimeType = "text/plain"
)

// CharsetUTF8 is the charset attached to text responses.
const CharsetUTF8 = "utf-8"

// IsText reports whether bodies of this type are text and carry a charset.
func (m MimeType) IsText() bool {
	switch m {
	case MimeApplicationJSON, MimeTextCSS, MimeTextHTML, MimeTextJavascript, MimeTextMarkdown, MimeTextPlain:
		return true
	}
	return false
}
