package asset

import (
	"path/filepath"
	"strings"
)

var mimeExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/svg+xml": "svg",
	"image/bmp":     "bmp",
	"audio/mpeg":    "mp3",
	"audio/mp3":     "mp3",
	"audio/ogg":     "ogg",
	"audio/wav":     "wav",
	"audio/x-wav":   "wav",
	"audio/aac":     "aac",
	"audio/mp4":     "m4a",
	"audio/webm":    "weba",
}

// ExtensionFor resolves the file extension used when materializing an asset
// to disk. Resolution order: declared metadata format, the display name's
// trailing extension, the MIME declared by a durable data URL, then the
// type-based default.
func ExtensionFor(a Asset) string {
	if ext := extForMIME(a.Metadata.Format); ext != "" {
		return ext
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(a.Name)), "."); ext != "" {
		return ext
	}
	if ext := extForMIME(SniffDataURLMIME(a.URL)); ext != "" {
		return ext
	}
	if a.Type == TypeAudio {
		return "mp3"
	}
	return "png"
}

func extForMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return ""
	}
	if ext, ok := mimeExtensions[mime]; ok {
		return ext
	}
	return ""
}
