package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/resume-matcher/internal/ai"
)

type fakeModels struct {
	mu       sync.Mutex
	calls    []modelCallRecord
	generate *genai.GenerateContentResponse
	embed    *genai.EmbedContentResponse
	err      error
}

type modelCallRecord struct {
	model  string
	text   string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCallRecord{model: model, text: contents[0].Parts[0].Text, config: config})
	return f.generate, f.err
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelCallRecord{model: model, text: contents[0].Parts[0].Text})
	return f.embed, f.err
}

func TestGeneratorJoinsParts(t *testing.T) {
	models := &fakeModels{generate: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "first "}, {Text: ""}, {Text: "second"}}},
		}},
	}}

	g := NewGenerator(models, "gemini-pro")
	out, err := g.Generate(context.Background(), ai.GenerateRequest{Prompt: "prompt", MaxOutputTokens: 1000, Temperature: 0.2, TopP: 0.9})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output: %q", out)
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(models.calls))
	}
	call := models.calls[0]
	if call.model != "gemini-pro" || call.text != "prompt" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.config.MaxOutputTokens != 1000 || *call.config.TopP != float32(0.9) || *call.config.Temperature != float32(0.2) {
		t.Fatalf("unexpected generation config: %+v", call.config)
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}

	_, err := NewGenerator(models, "").Generate(context.Background(), ai.GenerateRequest{Prompt: "  "})
	if !errors.Is(err, ai.ErrEmptyInput) {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if len(models.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.calls))
	}
}

func TestEmbedder(t *testing.T) {
	models := &fakeModels{embed: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2}}},
	}}

	e := NewEmbedder(models, "")
	vec, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if e.Model() != defaultEmbeddingModel {
		t.Fatalf("unexpected model: %s", e.Model())
	}

	models.embed = &genai.EmbedContentResponse{}
	if _, err := e.Embed(context.Background(), "text"); !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected malformed response for empty embeddings, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
		auth      bool
	}{
		{name: "internal", err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}, transient: true},
		{name: "unavailable", err: genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}, transient: true},
		{name: "quota", err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}, transient: true},
		{name: "unauthenticated", err: genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"}, auth: true},
		{name: "forbidden", err: genai.APIError{Code: http.StatusForbidden, Status: "PERMISSION_DENIED"}, auth: true},
		{name: "bad request", err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
		{name: "other", err: errors.New("boom")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			models := &fakeModels{err: tc.err}

			_, err := NewGenerator(models, "").Generate(context.Background(), ai.GenerateRequest{Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ai.IsTransient(err); got != tc.transient {
				t.Fatalf("transient = %v, want %v", got, tc.transient)
			}
			if got := ai.IsAuthentication(err); got != tc.auth {
				t.Fatalf("authentication = %v, want %v", got, tc.auth)
			}
		})
	}
}
