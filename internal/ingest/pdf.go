package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
)

// PDFContent is what ingestion pulls out of one PDF.
type PDFContent struct {
	Text      string
	Images    []entity.Image
	PageCount int
}

// ContentExtractor turns a file on disk into text and images.
type ContentExtractor interface {
	Extract(ctx context.Context, path string) (PDFContent, error)
}

// PDFExtractor reads PDFs with pdfcpu. Page text comes from content streams; pages
// with little or no text contribute their embedded images instead.
type PDFExtractor struct {
	logger *slog.Logger
	// MinPageText is the page text length below which images are extracted.
	MinPageText int
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger, MinPageText: constants.MinPageTextForImages}
}

// Extract parses the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (out PDFContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic on %s: %v", path, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return PDFContent{}, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return PDFContent{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	var text strings.Builder
	var images []entity.Image
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return PDFContent{}, err
		}
		pageText := pageText(pctx, pageNr)
		if pageText != "" {
			text.WriteString(pageText)
			text.WriteByte('\n')
		}
		if len(strings.TrimSpace(pageText)) < e.MinPageText {
			images = append(images, e.pageImages(pctx, pageNr, path)...)
		}
	}

	return PDFContent{
		Text:      strings.TrimSpace(text.String()),
		Images:    images,
		PageCount: pctx.PageCount,
	}, nil
}

func (e *PDFExtractor) pageImages(pctx *model.Context, pageNr int, path string) []entity.Image {
	imgs, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
	if err != nil {
		e.logger.Warn("ingest.pdf.images_failed", "path", path, "page", pageNr, "error", err)
		return nil
	}

	objNrs := make([]int, 0, len(imgs))
	for nr := range imgs {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	out := make([]entity.Image, 0, len(imgs))
	for _, nr := range objNrs {
		img := imgs[nr]
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			continue
		}
		out = append(out, entity.Image{
			MIMEType:   mimeForImageType(img.FileType),
			Base64Data: base64.StdEncoding.EncodeToString(data),
		})
	}
	return out
}

func pageText(pctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

var literalRe = regexp.MustCompile(`\((?:[^()\\]|\\.)*\)`)

// textFromContentStream collects string operands of the text-showing operators.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case len(line) == 0:
			continue
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, lit := range literalRe.FindAll(line, -1) {
				sb.WriteString(unescapeLiteral(lit[1 : len(lit)-1]))
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			sb.WriteByte('\n')
			for _, lit := range literalRe.FindAll(line, -1) {
				sb.WriteString(unescapeLiteral(lit[1 : len(lit)-1]))
			}
		case bytes.Equal(line, []byte("T*")), bytes.HasSuffix(line, []byte("TD")), bytes.HasSuffix(line, []byte("Td")):
			sb.WriteByte('\n')
		case bytes.Equal(line, []byte("ET")):
			sb.WriteByte('\n')
		}
	}
	return normalizeText(sb.String())
}

func unescapeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := 0
			j := 0
			for ; j < 3 && i+j < len(raw) && raw[i+j] >= '0' && raw[i+j] <= '7'; j++ {
				v = v*8 + int(raw[i+j]-'0')
			}
			i += j - 1
			sb.WriteByte(byte(v))
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// normalizeText collapses runs of spaces, keeps line breaks, and drops blank lines.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Map(func(r rune) rune {
			if r == '\t' || r == '\r' {
				return ' '
			}
			if !unicode.IsPrint(r) {
				return -1
			}
			return r
		}, line)
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
