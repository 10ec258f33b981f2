// Package similarity ranks fingerprinted posts against a query fingerprint.
//
// Distance is Hamming distance over the hex string, computed nibble by
// nibble. The weighted score blends overall, color-half and structure-half
// similarity. The three weights intentionally sum to 0.3, not 1: clients
// and the score threshold expect values on that scale, so do not normalize
// them.
package similarity

import (
	"sort"

	"github.com/pixelshelf/pixelshelf/internal/model"
)

const (
	// MaxDistance is a coarse prefilter on raw Hamming distance. It only
	// trims hopeless candidates; it never reorders results that pass.
	MaxDistance = 200

	WeightDistance  = 0.1
	WeightColor     = 0.1
	WeightStructure = 0.1

	// ScoreThreshold is inclusive: a candidate scoring exactly 0.1 survives.
	ScoreThreshold = 0.1

	// TopN caps the result list.
	TopN = 1000
)

// nibbleBits[n] is the number of set bits in the 4-bit value n.
var nibbleBits = [16]int{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// Match pairs a post with its similarity scores against the query
// fingerprint. Matches are derived per request and never persisted.
type Match struct {
	Post                *model.Post `json:"post"`
	Distance            int         `json:"distance"`
	Similarity          float64     `json:"similarity"`
	ColorSimilarity     float64     `json:"colorSimilarity"`
	StructureSimilarity float64     `json:"structureSimilarity"`
	WeightedScore       float64     `json:"weightedScore"`
}

// Distance returns the nibble-wise Hamming distance between two hex
// fingerprints. Fingerprints of unequal length are incomparable: ok is false
// and the pair never matches.
func Distance(a, b string) (dist int, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}
	for i := 0; i < len(a); i++ {
		na, ok := nibble(a[i])
		if !ok {
			return 0, false
		}
		nb, ok := nibble(b[i])
		if !ok {
			return 0, false
		}
		dist += nibbleBits[na^nb]
	}
	return dist, true
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// score computes the similarity facets for one candidate. The fingerprint is
// split at the midpoint: the first half carries color information, the second
// half structure.
func score(query, candidate string, dist int) Match {
	half := len(query) / 2

	colorDist, _ := Distance(query[:half], candidate[:half])
	structDist, _ := Distance(query[half:], candidate[half:])

	sim := 1 - float64(dist)/float64(len(query))
	colorSim := 1 - float64(colorDist)/float64(half)
	structSim := 1 - float64(structDist)/float64(len(query)-half)

	return Match{
		Distance:            dist,
		Similarity:          sim,
		ColorSimilarity:     colorSim,
		StructureSimilarity: structSim,
		WeightedScore:       sim*WeightDistance + colorSim*WeightColor + structSim*WeightStructure,
	}
}

// Rank scores every candidate post against the query fingerprint and returns
// the surviving matches sorted by weighted score descending, capped at TopN.
// Posts without a fingerprint, or with one of a different length, are
// silently skipped; a partially indexed corpus is normal. The sort is
// stable, so ties keep their input order.
func Rank(query string, posts []*model.Post) []Match {
	matches := make([]Match, 0, len(posts))

	for _, post := range posts {
		if post.Fingerprint == "" {
			continue
		}
		dist, ok := Distance(query, post.Fingerprint)
		if !ok || dist > MaxDistance {
			continue
		}
		m := score(query, post.Fingerprint, dist)
		if m.WeightedScore < ScoreThreshold {
			continue
		}
		m.Post = post
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].WeightedScore > matches[j].WeightedScore
	})

	if len(matches) > TopN {
		matches = matches[:TopN]
	}
	return matches
}
