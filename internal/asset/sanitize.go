package asset

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeName converts a display name into a storage-safe file name:
// Unicode-normalized, lowercased, with runs of separators collapsed to a
// single hyphen. The extension, when present, is preserved.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "asset"
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	cleaned := sanitizeComponent(base)
	if cleaned == "" {
		cleaned = "asset"
	}
	return cleaned + strings.ToLower(sanitizeExt(ext))
}

func sanitizeComponent(value string) string {
	value = norm.NFKC.String(value)
	var b strings.Builder
	prevSep := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(unicode.ToLower(r))
			prevSep = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSep && b.Len() > 0 {
				b.WriteByte('-')
				prevSep = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	var b strings.Builder
	b.WriteByte('.')
	for _, r := range ext[1:] {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsNumber(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}
