package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
)

// Classify implements llm.Classifier with a JSON-mode chat completion.
func (c *Client) Classify(ctx context.Context, content entity.Content) (*entity.ClassificationOutcome, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.classify.start",
		"req_id", rid, "model", c.cfg.Model,
		"text_len", len(content.Text), "images", len(content.Images),
	)

	user := userParts(content, "Document Text")
	if len(user) == 0 {
		return nil, nil
	}
	schema := llm.BuildClassificationJSONSchema()
	raw, err := c.complete(ctx, llm.ClassificationSystemPrompt, user, schema)
	if err != nil {
		c.log.Error("llm.classify.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	if err := llm.ValidateJSONAgainstSchema(schema, raw); err != nil {
		c.log.Error("llm.classify.schema_validation_failed", "req_id", rid, "error", err, "content", string(raw))
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var out struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal classification: %w", err)
	}
	c.log.Info("llm.classify.done",
		"req_id", rid, "document_type", out.DocumentType, "confidence", out.Confidence,
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
	c.log.Info("llm.extract.start",
		"req_id", rid, "model", c.cfg.Model, "document_type", req.Spec.Type,
		"text_len", len(req.Content.Text), "images", len(req.Content.Images),
	)

	user := userParts(req.Content, "Text Content")
	raw, err := c.complete(ctx, llm.BuildExtractionPrompt(req.Spec), user, req.Spec.JSONSchema())
	if err != nil {
		c.log.Error("llm.extract.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	record, err := llm.DecodeRecord(raw)
	if err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, err
	}
	c.log.Info("llm.extract.done", "req_id", rid, "fields", len(record), "elapsed_ms", time.Since(start).Milliseconds())
	return record, nil
}

// complete runs one chat completion and returns the message content, or nil
// when the model returned no choices.
func (c *Client) complete(ctx context.Context, system string, user []map[string]any, schema map[string]any) ([]byte, error) {
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": system + "\n\nReturn ONLY JSON matching this JSON Schema:\n" + mustJSON(schema)},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Warn("llm.openai.no_choices", "raw_bytes", len(raw))
		return nil, nil
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return nil, nil
	}
	return []byte(content), nil
}

func userParts(content entity.Content, label string) []map[string]any {
	parts := make([]map[string]any, 0, 1+len(content.Images))
	if text := llm.DocumentTextBlock(content, label); text != "" {
		parts = append(parts, map[string]any{"type": "text", "text": text})
	}
	for _, img := range content.Images {
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": "data:" + img.MIMEType + ";base64," + img.Base64Data},
		})
	}
	return parts
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
