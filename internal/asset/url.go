package asset

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// HandleScheme prefixes every volatile handle minted by the handle registry.
// URLs carrying this prefix reference in-process memory and die with it.
const HandleScheme = "blob:novelkit/"

// IsHandleURL reports whether the URL is a volatile handle form.
func IsHandleURL(url string) bool {
	return strings.HasPrefix(url, HandleScheme)
}

// IsDataURL reports whether the URL is a durable self-contained encoding.
func IsDataURL(url string) bool {
	return strings.HasPrefix(url, "data:")
}

// EncodeDataURL builds a durable data URL from a MIME type and payload.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a data URL into its MIME type and decoded payload.
func DecodeDataURL(url string) (string, []byte, error) {
	if !IsDataURL(url) {
		return "", nil, errors.New("not a data url")
	}
	rest := strings.TrimPrefix(url, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, errors.New("malformed data url: missing payload separator")
	}
	header := rest[:comma]
	payload := rest[comma+1:]

	mime := header
	base64Encoded := false
	if idx := strings.IndexByte(header, ';'); idx >= 0 {
		mime = header[:idx]
		base64Encoded = strings.Contains(header[idx:], "base64")
	}
	if mime == "" {
		mime = "text/plain"
	}

	if base64Encoded {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decode data url payload: %w", err)
		}
		return mime, data, nil
	}
	return mime, []byte(payload), nil
}

// SniffDataURLMIME returns the MIME type declared by a data URL, or empty.
func SniffDataURLMIME(url string) string {
	if !IsDataURL(url) {
		return ""
	}
	rest := strings.TrimPrefix(url, "data:")
	end := len(rest)
	if idx := strings.IndexAny(rest, ";,"); idx >= 0 {
		end = idx
	}
	return rest[:end]
}
