// Package ranking orders post result sets for the feed and search endpoints.
package ranking

import (
	"sort"
	"time"

	"github.com/pixelshelf/pixelshelf/internal/model"
)

// SortMode selects the ordering for a post query.
type SortMode int

const (
	SortRecent SortMode = iota
	SortPopular
	SortRelevant
)

// ParseSortMode maps a query-string value to a SortMode. Unknown or empty
// values fall back to SortRecent.
func ParseSortMode(s string) SortMode {
	switch s {
	case "popular":
		return SortPopular
	case "relevant":
		return SortRelevant
	default:
		return SortRecent
	}
}

func (m SortMode) String() string {
	switch m {
	case SortPopular:
		return "popular"
	case SortRelevant:
		return "relevant"
	default:
		return "recent"
	}
}

const millisPerDay = 24 * 60 * 60 * 1000

// RecencyScore is 1/(ageInDays+1): approaches 1 for brand-new posts and 0
// for old ones, never reaching either.
func RecencyScore(createdAt, now time.Time) float64 {
	ageDays := float64(now.Sub(createdAt).Milliseconds()) / millisPerDay
	return 1 / (ageDays + 1)
}

// Relevance blends engagement and recency: likes count double, comments
// single, recency as a small always-positive addend. The 2:1:recency ratio
// is a product decision.
func Relevance(likeCount, commentCount int, createdAt, now time.Time) float64 {
	return float64(likeCount)*2 + float64(commentCount) + RecencyScore(createdAt, now)
}

// Sort orders posts in place according to mode. Relevance depends on `now`,
// so it is recomputed on every call and never cached; the caller supplies a
// single clock reading for the whole result set. All sorts are stable so
// equal keys keep their input order.
func Sort(posts []*model.Post, mode SortMode, now time.Time) {
	switch mode {
	case SortPopular:
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].LikeCount > posts[j].LikeCount
		})
	case SortRelevant:
		scores := make(map[*model.Post]float64, len(posts))
		for _, p := range posts {
			scores[p] = Relevance(p.LikeCount, p.CommentCount, p.CreatedAt, now)
		}
		sort.SliceStable(posts, func(i, j int) bool {
			return scores[posts[i]] > scores[posts[j]]
		})
	default:
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		})
	}
}
