package constants

import "strings"

// AllowedExtensions holds the file extensions picked up by ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// Default filesystem layout, relative to the working directory.
const (
	DefaultRawDir        = "data/raw"
	DefaultProcessedDir  = "data/processed"
	DefaultQuarantineDir = "data/quarantine"
	HashesFileName       = "hashes.json"
	DefaultCSVPath       = "consolidated_results.csv"
	DefaultLogFile       = "logs/pipeline.log"
	ResultExt            = ".json"
)

// ProcessedAtLayout is the timestamp layout of metadata.processed_at.
const ProcessedAtLayout = "2006-01-02 15:04:05"

// MinPageTextForImages is the page text length below which page images are extracted.
const MinPageTextForImages = 50

// DefaultImageMIMEType is used when an extracted image has no recognisable type.
const DefaultImageMIMEType = "image/jpeg"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext (with or without a dot) is ingested.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
