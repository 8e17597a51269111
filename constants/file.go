package constants

import "strings"

const (
	PDF  = "PDF"
	TEXT = "TEXT"
)

// AllowedExtensions holds the bulletin document extensions accepted for ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, TEXT or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt":
		return TEXT
	default:
		return ""
	}
}
