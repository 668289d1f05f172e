package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/document-pipeline/constants"
	"github.com/joseph-ayodele/document-pipeline/internal/entity"
	"github.com/joseph-ayodele/document-pipeline/internal/llm"
	"github.com/joseph-ayodele/document-pipeline/internal/retry"
)

type capturedRequest struct {
	auth string
	path string
	body map[string]any
}

// completionServer answers every chat completion with content, or with status
// when it is not 200.
func completionServer(t *testing.T, status int, content string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		seen = append(seen, capturedRequest{auth: r.Header.Get("Authorization"), path: r.URL.Path, body: body})
		mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"nope"}}`, status)
			return
		}
		resp := map[string]any{"choices": []any{}}
		if content != "" {
			resp["choices"] = []any{map[string]any{"message": map[string]any{"content": content}}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func testClient(url string) *Client {
	return NewClient(Config{APIKey: "sk-test", BaseURL: url + "/v1/", Model: "gpt-test"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassify(t *testing.T) {
	srv, seen := completionServer(t, http.StatusOK, `{"document_type":"contract","confidence":0.91}`)
	c := testClient(srv.URL)

	content := entity.Content{
		Text:   "Contrato de prestação de serviços",
		Images: []entity.Image{{MIMEType: "image/png", Base64Data: "aGVsbG8="}},
	}
	got, err := c.Classify(context.Background(), content)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got.DocumentType != constants.Contract || got.Confidence != 0.91 {
		t.Fatalf("outcome = %+v", got)
	}

	if len(*seen) != 1 {
		t.Fatalf("requests = %d, want 1", len(*seen))
	}
	req := (*seen)[0]
	if req.path != "/v1/chat/completions" || req.auth != "Bearer sk-test" {
		t.Errorf("path = %q auth = %q", req.path, req.auth)
	}
	if req.body["model"] != "gpt-test" {
		t.Errorf("model = %v", req.body["model"])
	}
	if rf, _ := req.body["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Errorf("response_format = %v", req.body["response_format"])
	}
	msgs := req.body["messages"].([]any)
	user := msgs[1].(map[string]any)["content"].([]any)
	if len(user) != 2 {
		t.Fatalf("user parts = %d, want text + image", len(user))
	}
	img := user[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if img != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("image url = %q", img)
	}
}

func TestClassify_RejectsOffSchemaAnswer(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, `{"document_type":"contract","confidence":1.7}`)
	if _, err := testClient(srv.URL).Classify(context.Background(), entity.Content{Text: "x"}); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestClassify_NoChoicesIsNil(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, "")
	got, err := testClient(srv.URL).Classify(context.Background(), entity.Content{Text: "x"})
	if err != nil || got != nil {
		t.Fatalf("got %+v, err %v; want nil, nil", got, err)
	}
}

func TestClassify_EmptyContentSkipsRequest(t *testing.T) {
	srv, seen := completionServer(t, http.StatusOK, `{"document_type":"invoice","confidence":1}`)
	got, err := testClient(srv.URL).Classify(context.Background(), entity.Content{Text: "   "})
	if err != nil || got != nil {
		t.Fatalf("got %+v, err %v", got, err)
	}
	if len(*seen) != 0 {
		t.Errorf("requests = %d, want 0", len(*seen))
	}
}

func TestClassify_ClientErrorIsPermanent(t *testing.T) {
	srv, _ := completionServer(t, http.StatusUnauthorized, "")
	_, err := testClient(srv.URL).Classify(context.Background(), entity.Content{Text: "x"})
	var herr *llm.HTTPStatusError
	if !errors.As(err, &herr) || herr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want HTTPStatusError 401", err)
	}
	if !retry.IsPermanent(err) {
		t.Error("401 should not be retried")
	}
}

func TestExtractFields(t *testing.T) {
	srv, seen := completionServer(t, http.StatusOK,
		`{"document_type":"invoice","supplier_name":"ACME Ltda","total_amount":"1.234,50"}`)
	c := testClient(srv.URL)

	got, err := c.ExtractFields(context.Background(), llm.ExtractRequest{
		Spec:    llm.InvoiceSpec,
		Content: entity.Content{Text: "Nota Fiscal 123"},
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got["supplier_name"] != "ACME Ltda" || got["total_amount"] != "1.234,50" {
		t.Fatalf("record = %v", got)
	}

	sys := (*seen)[0].body["messages"].([]any)[0].(map[string]any)["content"].(string)
	if !strings.Contains(sys, "supplier_name") || !strings.Contains(sys, "JSON Schema") {
		t.Errorf("system prompt missing field list or schema: %q", sys)
	}
}

func TestExtractFields_NonObjectAnswer(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, `["not", "an", "object"]`)
	_, err := testClient(srv.URL).ExtractFields(context.Background(), llm.ExtractRequest{
		Spec:    llm.ContractSpec,
		Content: entity.Content{Text: "x"},
	})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExtractFields_ServerErrorIsRetryable(t *testing.T) {
	srv, _ := completionServer(t, http.StatusBadGateway, "")
	_, err := testClient(srv.URL).ExtractFields(context.Background(), llm.ExtractRequest{
		Spec:    llm.InvoiceSpec,
		Content: entity.Content{Text: "x"},
	})
	if err == nil || retry.IsPermanent(err) {
		t.Fatalf("err = %v, want retryable error", err)
	}
}
