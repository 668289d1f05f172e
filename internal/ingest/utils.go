package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/document-pipeline/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// mimeForImageType maps a pdfcpu image file type to a MIME type.
func mimeForImageType(fileType string) string {
	switch strings.ToLower(strings.TrimPrefix(fileType, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tif", "tiff":
		return "image/tiff"
	case "jpx", "jp2":
		return "image/jp2"
	case "webp":
		return "image/webp"
	default:
		return constants.DefaultImageMIMEType
	}
}
