package groq

import "testing"

func TestOpenAIConfigDefaults(t *testing.T) {
	oc := openaiConfig(&Config{APIKey: "gsk-test"})
	if oc.BaseURL != BaseURL {
		t.Fatalf("expected Groq base URL, got %q", oc.BaseURL)
	}
	if oc.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", oc.Model)
	}
	if oc.APIKey != "gsk-test" || oc.MaxTokens != 2000 {
		t.Fatalf("unexpected config %+v", oc)
	}
}

func TestOpenAIConfigOverrides(t *testing.T) {
	oc := openaiConfig(&Config{
		APIKey:      "k",
		BaseURL:     "http://localhost:9000/v1",
		Model:       "mixtral-8x7b-32768",
		MaxTokens:   512,
		Temperature: 0.3,
	})
	if oc.BaseURL != "http://localhost:9000/v1" || oc.Model != "mixtral-8x7b-32768" {
		t.Fatalf("overrides not applied: %+v", oc)
	}
	if oc.MaxTokens != 512 || oc.Temperature != 0.3 {
		t.Fatalf("limits not applied: %+v", oc)
	}
	if New(nil) == nil {
		t.Fatalf("New(nil) returned nil")
	}
}
