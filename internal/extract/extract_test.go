package extract

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Extract(context.Background(), "some text")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"POSITIVE", SentimentPositive},
		{"negative", SentimentNegative},
		{"Mixed", SentimentMixed},
		{"NEUTRAL", SentimentNeutral},
		{"unknown", SentimentNeutral},
		{"", SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run("label "+tt.input, func(t *testing.T) {
			if got := normalizeLabel(tt.input); got != tt.want {
				t.Errorf("normalizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced with language", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  \n```json\n{\"a\":1}\n```\n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.input); got != tt.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Extract(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"entities": [{"text": "Acme", "type": "organization", "score": 0.92}],
			"key_phrases": [{"text": "login error", "score": 0.95}],
			"sentiment": {
				"sentiment": "negative",
				"sentiment_score": {"positive": 0.05, "negative": 0.8, "neutral": 0.1, "mixed": 0.05}
			}
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	res, err := c.Extract(context.Background(), "login error at Acme")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody == "" {
		t.Errorf("request body not sent")
	}

	if len(res.Entities) != 1 || res.Entities[0].Type != "ORGANIZATION" {
		t.Errorf("Entities = %+v, want uppercased type", res.Entities)
	}
	if len(res.KeyPhrases) != 1 || res.KeyPhrases[0].Text != "login error" {
		t.Errorf("KeyPhrases = %+v", res.KeyPhrases)
	}
	if res.Sentiment.Label != SentimentNegative {
		t.Errorf("Sentiment = %+v, want NEGATIVE", res.Sentiment)
	}
	if res.Sentiment.Scores.Negative != 0.8 {
		t.Errorf("Scores = %+v", res.Sentiment.Scores)
	}
}

func TestHTTPClient_ExtractAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limited", "message": "slow down"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	_, err := c.Extract(context.Background(), "text")
	if err == nil {
		t.Fatalf("expected error on 429")
	}
	for _, want := range []string{"429", "rate_limited", "slow down"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestHTTPClient_ExtractNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-key")
	_, err := c.Extract(context.Background(), "text")
	if err == nil || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Fatalf("err = %v, want raw body in message", err)
	}
}
