package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient calls a hosted text-analytics service that returns entities, key
// phrases and sentiment for a single document in one round trip.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type analyzeResponse struct {
	Entities []struct {
		Text  string  `json:"text"`
		Type  string  `json:"type"`
		Score float64 `json:"score"`
	} `json:"entities"`
	KeyPhrases []struct {
		Text  string  `json:"text"`
		Score float64 `json:"score"`
	} `json:"key_phrases"`
	Sentiment struct {
		Label  string `json:"sentiment"`
		Scores struct {
			Positive float64 `json:"positive"`
			Negative float64 `json:"negative"`
			Neutral  float64 `json:"neutral"`
			Mixed    float64 `json:"mixed"`
		} `json:"sentiment_score"`
	} `json:"sentiment"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract sends the text for analysis and maps the provider response into the
// canonical Result shape.
func (c *HTTPClient) Extract(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(analyzeRequest{Text: text, Language: "en"})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp analyzeResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return canonical(apiResp), nil
}

func canonical(r analyzeResponse) *Result {
	out := &Result{
		Sentiment: Sentiment{
			Label: normalizeLabel(r.Sentiment.Label),
			Scores: SentimentScores{
				Positive: r.Sentiment.Scores.Positive,
				Negative: r.Sentiment.Scores.Negative,
				Neutral:  r.Sentiment.Scores.Neutral,
				Mixed:    r.Sentiment.Scores.Mixed,
			},
		},
	}
	for _, e := range r.Entities {
		out.Entities = append(out.Entities, Entity{
			Text:  e.Text,
			Type:  strings.ToUpper(e.Type),
			Score: e.Score,
		})
	}
	for _, p := range r.KeyPhrases {
		out.KeyPhrases = append(out.KeyPhrases, KeyPhrase{Text: p.Text, Score: p.Score})
	}
	return out
}

func normalizeLabel(label string) string {
	switch strings.ToUpper(label) {
	case SentimentPositive, SentimentNegative, SentimentMixed:
		return strings.ToUpper(label)
	default:
		return SentimentNeutral
	}
}
