package similarity

import (
	"math"
	"testing"
	"time"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/extract"
)

const tolerance = 1e-9

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func email(id, subject, from string, at time.Time, categories ...string) *analyze.AnalyzedEmail {
	return &analyze.AnalyzedEmail{
		EmailID:    id,
		Subject:    subject,
		From:       from,
		ReceivedAt: at,
		Categories: categories,
	}
}

func TestEmailEmail_FingerprintShortCircuit(t *testing.T) {
	a := email("a", "Login broken", "alice@example.com", baseTime, "bug")
	b := email("b", "Completely different subject", "bob@example.com", baseTime.Add(30*24*time.Hour))
	a.Fingerprint = "deadbeef"
	b.Fingerprint = "deadbeef"

	if got := EmailEmail(a, b); got != 1.0 {
		t.Errorf("equal fingerprints = %v, want 1.0", got)
	}

	// Empty fingerprints must not match each other.
	a.Fingerprint = ""
	b.Fingerprint = ""
	if got := EmailEmail(a, b); got == 1.0 {
		t.Errorf("empty fingerprints scored 1.0")
	}
}

func TestEmailEmail_Components(t *testing.T) {
	tests := []struct {
		name string
		a, b *analyze.AnalyzedEmail
		want float64
	}{
		{
			name: "identical everything except fingerprint",
			a:    email("a", "Login broken", "alice@example.com", baseTime, "bug"),
			b:    email("b", "Re: Login broken", "alice@example.com", baseTime, "bug"),
			want: 0.45 + 0.20 + 0.20 + 0.15,
		},
		{
			name: "sender case insensitive",
			a:    email("a", "x", "Alice@Example.com", time.Time{}),
			b:    email("b", "y", "alice@example.com", time.Time{}),
			want: 0.20,
		},
		{
			name: "half subject overlap only",
			a:    email("a", "alpha bravo", "", time.Time{}),
			b:    email("b", "alpha charlie", "", time.Time{}),
			want: 0.45 * (1.0 / 3.0),
		},
		{
			name: "category overlap only",
			a:    email("a", "", "", time.Time{}, "bug", "urgent"),
			b:    email("b", "", "", time.Time{}, "bug"),
			want: 0.20 * 0.5,
		},
		{
			name: "temporal only at half window",
			a:    email("a", "", "", baseTime),
			b:    email("b", "", "", baseTime.Add(3*24*time.Hour+12*time.Hour)),
			want: 0.15 * 0.5,
		},
		{
			name: "nothing in common",
			a:    email("a", "alpha", "alice@example.com", baseTime),
			b:    email("b", "bravo", "bob@example.com", baseTime.Add(10*24*time.Hour)),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EmailEmail(tt.a, tt.b)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("EmailEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmailEmail_Symmetric(t *testing.T) {
	a := email("a", "Login broken again", "alice@example.com", baseTime, "bug")
	b := email("b", "Login broken", "bob@example.com", baseTime.Add(2*time.Hour), "bug", "urgent")

	if ab, ba := EmailEmail(a, b), EmailEmail(b, a); math.Abs(ab-ba) > tolerance {
		t.Errorf("not symmetric: %v vs %v", ab, ba)
	}
}

func TestTemporalProximity(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want float64
	}{
		{"same instant", baseTime, baseTime, 1.0},
		{"one day apart", baseTime, baseTime.Add(24 * time.Hour), 1.0 - 1.0/7.0},
		{"order irrelevant", baseTime.Add(24 * time.Hour), baseTime, 1.0 - 1.0/7.0},
		{"exactly at window", baseTime, baseTime.Add(7 * 24 * time.Hour), 0},
		{"beyond window", baseTime, baseTime.Add(30 * 24 * time.Hour), 0},
		{"zero timestamp", time.Time{}, baseTime, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := temporalProximity(tt.a, tt.b)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("temporalProximity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubjectTokens(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    int
	}{
		{"drops short tokens", "it is an app", 1},
		{"strips reply markers", "Re: Fwd: login broken", 2},
		{"punctuation splits", "login-broken, again!", 3},
		{"empty", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := subjectTokens(tt.subject); len(got) != tt.want {
				t.Errorf("subjectTokens(%q) = %v, want %d tokens", tt.subject, got, tt.want)
			}
		})
	}
}

func TestSetJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"x", "y"}, []string{"x", "y"}, 1.0},
		{"disjoint", []string{"x"}, []string{"y"}, 0},
		{"partial", []string{"x", "y", "z"}, []string{"x", "w"}, 0.25},
		{"case insensitive", []string{"Bug"}, []string{"bug"}, 1.0},
		{"duplicates collapse", []string{"x", "x"}, []string{"x"}, 1.0},
		{"either empty", nil, []string{"x"}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := setJaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > tolerance {
				t.Errorf("setJaccard(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestStatusWeight(t *testing.T) {
	tests := []struct {
		status string
		want   float64
	}{
		{"open", 1.0},
		{"OPEN", 1.0},
		{"in_progress", 0.8},
		{"in-progress", 0.8},
		{"resolved", 0.3},
		{"closed", 0.3},
		{"triaged", 0.5},
		{"", 0.5},
	}

	for _, tt := range tests {
		t.Run("status "+tt.status, func(t *testing.T) {
			if got := statusWeight(tt.status); got != tt.want {
				t.Errorf("statusWeight(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestEmailTicket(t *testing.T) {
	e := &analyze.AnalyzedEmail{
		EmailID:    "em-1",
		Subject:    "Login broken",
		Categories: []string{"bug"},
		KeyPhrases: []extract.KeyPhrase{
			{Text: "login error", Score: 0.9},
			{Text: "password reset", Score: 0.8},
		},
	}
	open := &analyze.AnalyzedTicket{
		TicketID:   "tk-1",
		Title:      "Login failures",
		Status:     "open",
		Categories: []string{"bug"},
		KeyPhrases: []extract.KeyPhrase{
			{Text: "login error", Score: 0.9},
			{Text: "timeout", Score: 0.7},
		},
	}

	// phrases jaccard 1/3, title jaccard 1/3, category 1, status 1.
	want := 0.30*(1.0/3.0) + 0.30*(1.0/3.0) + 0.25*1 + 0.15*1
	if got := EmailTicket(e, open); math.Abs(got-want) > tolerance {
		t.Errorf("EmailTicket(open) = %v, want %v", got, want)
	}

	closed := *open
	closed.Status = "closed"
	gotOpen, gotClosed := EmailTicket(e, open), EmailTicket(e, &closed)
	if gotClosed >= gotOpen {
		t.Errorf("closed ticket %v should score below open ticket %v", gotClosed, gotOpen)
	}
	if math.Abs((gotOpen-gotClosed)-0.15*(1.0-0.3)) > tolerance {
		t.Errorf("status gap = %v, want %v", gotOpen-gotClosed, 0.15*0.7)
	}
}

func TestEmailTicketSignals(t *testing.T) {
	e := &analyze.AnalyzedEmail{Subject: "Billing question", Categories: []string{"billing"}}
	tk := &analyze.AnalyzedTicket{Title: "Billing portal down", Status: "in_progress", Categories: []string{"billing", "bug"}}

	s := EmailTicketSignals(e, tk)
	if math.Abs(s.Title-0.25) > tolerance {
		t.Errorf("Title signal = %v, want 0.25", s.Title)
	}
	if math.Abs(s.Category-0.5) > tolerance {
		t.Errorf("Category signal = %v, want 0.5", s.Category)
	}
	if s.Status != 0.8 {
		t.Errorf("Status signal = %v, want 0.8", s.Status)
	}
	if s.Phrases != 0 {
		t.Errorf("Phrases signal = %v, want 0", s.Phrases)
	}
}
