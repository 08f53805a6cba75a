// Package group clusters analyzed emails into duplicate/related groups.
// Relatedness is pairwise similarity at or above a threshold; grouping takes
// its transitive closure, so A~B and B~C put all three together even when
// A~C alone would not qualify.
package group

import (
	"log/slog"
	"sort"

	"github.com/forgedesk/triage/internal/analyze"
	"github.com/forgedesk/triage/internal/similarity"
)

// EmailGroup is a request-scoped cluster of related emails with a designated
// primary. Groups are recomputed on every pass, never persisted.
type EmailGroup struct {
	Primary *analyze.AnalyzedEmail `json:"primary_email"`
	Related []RelatedEmail         `json:"related_emails"`
}

// RelatedEmail pairs a group member with its similarity to the primary.
type RelatedEmail struct {
	Email      *analyze.AnalyzedEmail `json:"email"`
	Similarity float64                `json:"similarity"`
}

// Strategy produces clusters of email indexes. Swapping the implementation
// changes how relatedness is aggregated without touching similarity scoring.
type Strategy interface {
	Cluster(emails []*analyze.AnalyzedEmail, threshold float64) [][]int
}

// Grouper runs the clustering strategy and selects each group's primary.
type Grouper struct {
	strategy  Strategy
	threshold float64
	logger    *slog.Logger
}

func New(threshold float64, logger *slog.Logger) *Grouper {
	return NewWithStrategy(ConnectedComponents{}, threshold, logger)
}

func NewWithStrategy(s Strategy, threshold float64, logger *slog.Logger) *Grouper {
	return &Grouper{strategy: s, threshold: threshold, logger: logger}
}

// Group clusters the emails and builds one EmailGroup per component of size
// two or more. Singletons produce no group; they still flow into ticket
// cross-referencing upstream.
func (g *Grouper) Group(emails []*analyze.AnalyzedEmail) []EmailGroup {
	clusters := g.strategy.Cluster(emails, g.threshold)

	groups := make([]EmailGroup, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) < 2 {
			continue
		}

		primary := cluster[0]
		for _, idx := range cluster[1:] {
			if betterPrimary(emails[idx], emails[primary]) {
				primary = idx
			}
		}

		grp := EmailGroup{Primary: emails[primary]}
		for _, idx := range cluster {
			if idx == primary {
				continue
			}
			// Similarity reported against the primary specifically, not
			// whatever pair pulled the member into the component.
			grp.Related = append(grp.Related, RelatedEmail{
				Email:      emails[idx],
				Similarity: similarity.EmailEmail(emails[primary], emails[idx]),
			})
		}
		sort.Slice(grp.Related, func(i, j int) bool {
			if grp.Related[i].Similarity != grp.Related[j].Similarity {
				return grp.Related[i].Similarity > grp.Related[j].Similarity
			}
			return grp.Related[i].Email.EmailID < grp.Related[j].Email.EmailID
		})
		groups = append(groups, grp)
	}

	// Stable output order regardless of input permutation.
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Primary, groups[j].Primary
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		return a.EmailID < b.EmailID
	})

	if g.logger != nil {
		g.logger.Debug("emails grouped", "emails", len(emails), "groups", len(groups))
	}
	return groups
}

// betterPrimary implements the primary-selection policy: earliest received
// wins; ties fall to the higher topic score, then the lower id.
func betterPrimary(a, b *analyze.AnalyzedEmail) bool {
	if !a.ReceivedAt.Equal(b.ReceivedAt) {
		return a.ReceivedAt.Before(b.ReceivedAt)
	}
	if a.TopicScore != b.TopicScore {
		return a.TopicScore > b.TopicScore
	}
	return a.EmailID < b.EmailID
}

// ConnectedComponents is the default Strategy: union-find over every pair
// scoring at or above the threshold (inclusive).
type ConnectedComponents struct{}

func (ConnectedComponents) Cluster(emails []*analyze.AnalyzedEmail, threshold float64) [][]int {
	parent := make([]int, len(emails))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i]) // path compression
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < len(emails); i++ {
		for j := i + 1; j < len(emails); j++ {
			if similarity.EmailEmail(emails[i], emails[j]) >= threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range emails {
		root := find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	var clusters [][]int
	for _, members := range byRoot {
		if len(members) > 1 {
			sort.Ints(members)
			clusters = append(clusters, members)
		}
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}
