package utils

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const DefaultImageMIME = "image/png"

var dataURLPattern = regexp.MustCompile(`^data:([^;,]*)[^,]*,(.*)$`)

// ToDataURL encodes raw bytes as data:<mime>;base64,<payload>.
func ToDataURL(mime string, b []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(b))
}

// SplitDataURL separates a data URL into MIME type and base64 payload. A
// missing MIME type defaults to image/png; input that is not a data URL at
// all is returned whole as the payload.
func SplitDataURL(s string) (mime, payload string) {
	m := dataURLPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultImageMIME, s
	}
	if m[1] == "" {
		return DefaultImageMIME, m[2]
	}
	return m[1], m[2]
}

// GuessMIME maps a file extension onto an image MIME type.
func GuessMIME(p string) string {
	mime := DefaultImageMIME
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".webp":
		mime = "image/webp"
	case ".gif":
		mime = "image/gif"
	}
	return mime
}

// ExtensionForMIME is the inverse of GuessMIME, defaulting to .png.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ".png"
}
