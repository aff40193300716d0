package tags

import (
	"net/http"
	"strings"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

// detectMimeType detects the MIME type of image data.
func detectMimeType(data []byte) string {
	if len(data) == 0 {
		return mimeJPEG
	}
	contentType := http.DetectContentType(data)
	switch {
	case contentType == mimeJPEG, contentType == mimePNG:
		return contentType
	case strings.HasPrefix(contentType, "image/"):
		// gif, bmp, webp, x-icon
		return contentType
	default:
		// Default to JPEG for unknown types
		return mimeJPEG
	}
}
