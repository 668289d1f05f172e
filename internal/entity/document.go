package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Image is one page image attached to a document, base64 encoded.
type Image struct {
	MIMEType   string `json:"mime_type"`
	Base64Data string `json:"data"`
}

// Content is what the AI gateways see of a document.
type Content struct {
	Text   string  `json:"text"`
	Images []Image `json:"images"`
}

// HasImages reports whether any image is attached.
func (c Content) HasImages() bool { return len(c.Images) > 0 }

// IsEmpty reports whether there is neither text nor images.
func (c Content) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Images) == 0
}

// Document is the unit of work handed to a worker. It is owned by exactly one
// worker for the duration of one run.
type Document struct {
	Filename   string
	SourcePath string
	Text       string
	Images     []Image
	PageCount  int

	contentHash string
}

// Content returns the gateway view of the document.
func (d *Document) Content() Content {
	return Content{Text: d.Text, Images: d.Images}
}

// Stem is the filename without its extension; results are keyed by it.
func (d *Document) Stem() string {
	return strings.TrimSuffix(d.Filename, filepath.Ext(d.Filename))
}

// ContentHash returns the hex sha256 of the source file, computing it on first use.
func (d *Document) ContentHash() (string, error) {
	if d.contentHash != "" {
		return d.contentHash, nil
	}
	h, err := HashFile(d.SourcePath)
	if err != nil {
		return "", err
	}
	d.contentHash = h
	return h, nil
}

// HashFile returns the hex sha256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
