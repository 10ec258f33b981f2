package similarity

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pixelshelf/pixelshelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fp builds a 64-char fingerprint from a repeated hex digit.
func fp(c string) string {
	return strings.Repeat(c, 64)
}

// flipNibbles returns base with the first n characters replaced so each
// replacement differs from '0' by exactly one bit.
func flipNibbles(base string, n int) string {
	b := []byte(base)
	for i := 0; i < n; i++ {
		b[i] = '1' // 0x0 ^ 0x1 = one bit
	}
	return string(b)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		wantDist int
		wantOK   bool
	}{
		{name: "identical", a: fp("a"), b: fp("a"), wantDist: 0, wantOK: true},
		{name: "single bit", a: "0" + fp("0")[1:], b: "1" + fp("0")[1:], wantDist: 1, wantOK: true},
		{name: "full nibble", a: fp("0"), b: fp("f"), wantDist: 64 * 4, wantOK: true},
		{name: "length mismatch", a: fp("a"), b: fp("a")[:32], wantDist: 0, wantOK: false},
		{name: "both empty", a: "", b: "", wantDist: 0, wantOK: true},
		{name: "uppercase equals lowercase", a: "AB", b: "ab", wantDist: 0, wantOK: true},
		{name: "non-hex char", a: "zz", b: "aa", wantDist: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ok := Distance(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDist, dist)
		})
	}
}

func TestRankSelfSimilarity(t *testing.T) {
	query := fp("c")
	posts := []*model.Post{{ID: "p1", Fingerprint: query}}

	matches := Rank(query, posts)

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 0, m.Distance)
	assert.Equal(t, 1.0, m.Similarity)
	assert.Equal(t, 1.0, m.ColorSimilarity)
	assert.Equal(t, 1.0, m.StructureSimilarity)
	assert.InDelta(t, 0.3, m.WeightedScore, 1e-12)
}

func TestRankSkipsIncomparable(t *testing.T) {
	query := fp("0")
	posts := []*model.Post{
		{ID: "empty", Fingerprint: ""},
		{ID: "short", Fingerprint: fp("0")[:32]},
		{ID: "match", Fingerprint: query},
	}

	matches := Rank(query, posts)

	require.Len(t, matches, 1)
	assert.Equal(t, "match", matches[0].Post.ID)
}

func TestRankExcludesDistantFingerprints(t *testing.T) {
	// 0x0 vs 0xf differs by 4 bits per nibble, so a fully inverted
	// fingerprint sits at distance 256, past both the distance prefilter
	// and the score threshold.
	query := fp("0")

	posts := []*model.Post{
		{ID: "inverted", Fingerprint: fp("f")},
		{ID: "near", Fingerprint: flipNibbles(query, 3)},
	}

	matches := Rank(query, posts)

	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Post.ID)
	assert.Equal(t, 3, matches[0].Distance)
}

func TestRankScoreThresholdInclusive(t *testing.T) {
	query := fp("0")

	// Flipping the first d nibbles by one bit each: at d = 42 the
	// weighted score is 0.1031, at d = 43 it drops to 0.0984, just below
	// the inclusive 0.1 cutoff.
	keep := flipNibbles(query, 42)
	drop := flipNibbles(query, 43)

	matches := Rank(query, []*model.Post{
		{ID: "keep", Fingerprint: keep},
		{ID: "drop", Fingerprint: drop},
	})

	require.Len(t, matches, 1)
	assert.Equal(t, "keep", matches[0].Post.ID)
	assert.GreaterOrEqual(t, matches[0].WeightedScore, ScoreThreshold)
}

func TestRankOrderingAndCap(t *testing.T) {
	query := fp("0")

	// 1500 candidates with increasing distance, best first expected.
	posts := make([]*model.Post, 0, 1500)
	for i := 0; i < 1500; i++ {
		posts = append(posts, &model.Post{
			ID:          fmt.Sprintf("p%d", i),
			Fingerprint: flipNibbles(query, i%40),
		})
	}

	matches := Rank(query, posts)

	assert.Len(t, matches, TopN)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].WeightedScore, matches[i].WeightedScore)
	}
}

func TestRankStableOnTies(t *testing.T) {
	query := fp("7")
	posts := []*model.Post{
		{ID: "first", Fingerprint: query},
		{ID: "second", Fingerprint: query},
	}

	matches := Rank(query, posts)

	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Post.ID)
	assert.Equal(t, "second", matches[1].Post.ID)
}

func TestScoreMonotonicity(t *testing.T) {
	query := fp("0")

	var prev float64 = 0.4
	for d := 0; d <= 10; d++ {
		candidate := flipNibbles(query, d)
		matches := Rank(query, []*model.Post{{ID: "p", Fingerprint: candidate}})
		require.Len(t, matches, 1)
		assert.Less(t, matches[0].WeightedScore, prev)
		prev = matches[0].WeightedScore
	}
}
