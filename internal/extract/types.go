package extract

// Sentiment labels in the canonical feature shape. Backends map their own
// scales onto these four.
const (
	SentimentPositive = "POSITIVE"
	SentimentNegative = "NEGATIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentMixed    = "MIXED"
)

// Entity is a named item extracted from text.
type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"` // PERSON, ORGANIZATION, EVENT, TITLE, COMMERCIAL_ITEM, ...
	Score float64 `json:"score"`
}

// KeyPhrase is a salient phrase with a confidence score.
type KeyPhrase struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SentimentScores is the four-way score distribution. Each value is in [0,1];
// the sum is not required to be exactly 1.
type SentimentScores struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

// Sentiment is the dominant label plus the full distribution.
type Sentiment struct {
	Label  string          `json:"label"`
	Scores SentimentScores `json:"scores"`
}

// Result is the canonical output of one extraction call, regardless of backend.
type Result struct {
	Entities   []Entity    `json:"entities"`
	KeyPhrases []KeyPhrase `json:"key_phrases"`
	Sentiment  Sentiment   `json:"sentiment"`
}

// NeutralResult is the short-circuit result for empty input: no features and a
// fully neutral sentiment.
func NeutralResult() *Result {
	return &Result{
		Sentiment: Sentiment{
			Label:  SentimentNeutral,
			Scores: SentimentScores{Neutral: 1},
		},
	}
}
