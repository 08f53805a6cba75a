package analyze

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxExtractBytes is the document size limit of the extraction backend; text
// is truncated to the largest character-boundary prefix at or under it.
const maxExtractBytes = 4900

// PrepareText builds the extraction input for one item: HTML stripped from the
// body, subject and body joined with a blank line, truncated to the backend
// limit without splitting a multi-byte character.
func PrepareText(subject, body string) string {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(StripHTML(body))

	var text string
	switch {
	case subject == "":
		text = body
	case body == "":
		text = subject
	default:
		text = subject + "\n\n" + body
	}

	return TruncateBytes(text, maxExtractBytes)
}

// TruncateBytes returns the longest prefix of s that fits in limit bytes and
// ends on a character boundary. Binary search over the character count finds
// the cut point.
func TruncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	runes := []rune(s)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if len(string(runes[:mid])) <= limit {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

// StripHTML extracts visible text from an HTML email body. Plain-text bodies
// pass through untouched, as does anything the parser cannot handle.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, head").Remove()

	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
