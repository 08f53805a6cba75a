package analyze

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/forgedesk/triage/internal/extract"
)

// fingerprintTopN bounds how many phrases and entities feed the fingerprint.
const fingerprintTopN = 10

// importantEntityTypes is the allow-list of entity types that carry enough
// identity to contribute to the content fingerprint.
var importantEntityTypes = map[string]bool{
	"PERSON":          true,
	"ORGANIZATION":    true,
	"EVENT":           true,
	"TITLE":           true,
	"COMMERCIAL_ITEM": true,
}

type fingerprintPayload struct {
	Subject  string   `json:"subject"`
	Phrases  []string `json:"phrases"`
	Entities []string `json:"entities"`
}

// Fingerprint derives the deterministic content hash for deduplication: a
// SHA-256 over the normalized subject, the sorted top phrases and the sorted
// top allow-listed entities. Input order never affects the result.
func Fingerprint(subject string, phrases []extract.KeyPhrase, entities []extract.Entity) string {
	payload := fingerprintPayload{
		Subject:  NormalizeSubject(subject),
		Phrases:  topPhraseTexts(phrases),
		Entities: topEntityKeys(entities),
	}

	// Struct fields marshal in declaration order, so the encoding is stable.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeSubject lowercases, trims, and strips any stack of leading reply
// and forward markers.
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		stripped := false
		for _, marker := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(s, marker) {
				s = strings.TrimSpace(strings.TrimPrefix(s, marker))
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

func topPhraseTexts(phrases []extract.KeyPhrase) []string {
	ranked := make([]extract.KeyPhrase, len(phrases))
	copy(ranked, phrases)
	// Equal scores fall back to text so the cut at fingerprintTopN does not
	// depend on input order.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Text < ranked[j].Text
	})
	if len(ranked) > fingerprintTopN {
		ranked = ranked[:fingerprintTopN]
	}

	out := make([]string, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, strings.ToLower(strings.TrimSpace(p.Text)))
	}
	sort.Strings(out)
	return out
}

func topEntityKeys(entities []extract.Entity) []string {
	var important []extract.Entity
	for _, e := range entities {
		if importantEntityTypes[e.Type] {
			important = append(important, e)
		}
	}
	sort.Slice(important, func(i, j int) bool {
		if important[i].Score != important[j].Score {
			return important[i].Score > important[j].Score
		}
		return important[i].Text < important[j].Text
	})
	if len(important) > fingerprintTopN {
		important = important[:fingerprintTopN]
	}

	out := make([]string, 0, len(important))
	for _, e := range important {
		out = append(out, e.Type+":"+strings.ToLower(strings.TrimSpace(e.Text)))
	}
	sort.Strings(out)
	return out
}
