package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/price-bulletin/constants"
)

// AllowedExt checks if a file extension is a bulletin document type.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
