package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
)

// Client is a Vertex AI Gemini provider.
type Client struct {
	cfg        Config
	base       *genai.Client
	classifier *genai.GenerativeModel
	log        *slog.Logger
}

// NewClient creates the Vertex client and the pre-configured classification model.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	cfg.applyDefaults()
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gemini: project id cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	c := &Client{cfg: cfg, base: base, log: logger}
	c.classifier = c.model(llm.ClassificationSystemPrompt, classificationSchema())
	return c, nil
}

func (c *Client) Name() string { return "gemini:" + c.cfg.Model }

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func (c *Client) model(system string, schema *genai.Schema) *genai.GenerativeModel {
	m := c.base.GenerativeModel(c.cfg.Model)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr(c.cfg.Temperature),
	}
	return m
}

// Classify implements llm.Classifier.
func (c *Client) Classify(ctx context.Context, content entity.Content) (*entity.ClassificationOutcome, error) {
	rid := uuid.New().String()
	start := time.Now()
	logCtx := c.log.With("req_id", rid, "model", c.cfg.Model)
	logCtx.Info("llm.classify.start", "text_len", len(content.Text), "images", len(content.Images))

	parts := c.parts(content, "Document Text")
	if len(parts) == 0 {
		return nil, nil
	}

	raw, err := c.generate(ctx, c.classifier, parts)
	if err != nil {
		logCtx.Error("llm.classify.call_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if raw == "" {
		logCtx.Warn("llm.classify.empty_response")
		return nil, nil
	}

	var out struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logCtx.Error("llm.classify.decode_failed", "error", err, "content", raw)
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	logCtx.Info("llm.classify.ok",
		"document_type", out.DocumentType, "confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &entity.ClassificationOutcome{
		DocumentType: constants.DocumentType(out.DocumentType),
		Confidence:   out.Confidence,
	}, nil
}

// ExtractFields implements llm.FieldExtractor.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()
	logCtx := c.log.With("req_id", rid, "model", c.cfg.Model, "document_type", req.Spec.Type)
	logCtx.Info("llm.extract.start", "text_len", len(req.Content.Text), "images", len(req.Content.Images))

	model := c.model(llm.BuildExtractionPrompt(req.Spec), recordSchema(req.Spec))
	raw, err := c.generate(ctx, model, c.parts(req.Content, "Text Content"))
	if err != nil {
		logCtx.Error("llm.extract.call_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if raw == "" {
		logCtx.Warn("llm.extract.empty_response")
		return nil, nil
	}
	record, err := llm.DecodeRecord([]byte(raw))
	if err != nil {
		logCtx.Error("llm.extract.decode_failed", "error", err, "raw_bytes", len(raw))
		return nil, err
	}
	logCtx.Info("llm.extract.ok", "fields", len(record), "elapsed_ms", time.Since(start).Milliseconds())
	return record, nil
}

func (c *Client) generate(ctx context.Context, m *genai.GenerativeModel, parts []genai.Part) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return responseText(resp), nil
}

// parts builds the request payload: one text block, then every page image.
// Images that fail to decode are skipped.
func (c *Client) parts(content entity.Content, label string) []genai.Part {
	parts := make([]genai.Part, 0, 1+len(content.Images))
	if text := llm.DocumentTextBlock(content, label); text != "" {
		parts = append(parts, genai.Text(text))
	}
	for i, img := range content.Images {
		data, err := base64.StdEncoding.DecodeString(img.Base64Data)
		if err != nil {
			c.log.Warn("llm.gemini.image_decode_failed", "index", i, "error", err)
			continue
		}
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: data})
	}
	return parts
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(b.String())
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
