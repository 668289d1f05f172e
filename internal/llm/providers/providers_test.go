package providers

import (
	"context"
	"testing"

	"github.com/joseph-ayodele/document-pipeline/internal/common"
)

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  common.LLMConfig
	}{
		{"openai without key", common.LLMConfig{Provider: common.ProviderOpenAI}},
		{"gemini without project", common.LLMConfig{Provider: common.ProviderGemini}},
		{"unknown provider", common.LLMConfig{Provider: "bard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(context.Background(), tt.cfg, nil)
			if err == nil || p != nil {
				t.Fatalf("got %v, %v; want config error", p, err)
			}
			if !common.IsConfigError(err) {
				t.Errorf("err = %v, want config error", err)
			}
		})
	}
}

func TestNew_OpenAI(t *testing.T) {
	p, err := New(context.Background(), common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "sk-test", OpenAIModel: "gpt-4o-mini"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.Name() != "openai:gpt-4o-mini" {
		t.Errorf("name = %q", p.Name())
	}
}
