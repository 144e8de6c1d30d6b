// File: internal/locate/locate.go
//
// On-screen text location for CLICK_TEXT. A backend produces text candidates
// with bounds; ranking is shared across backends so every locator scores
// queries the same way.
package locate

import (
	"context"
	"image"
	"sort"
	"strings"
)

// DefaultMinScore filters out weak matches unless the command overrides it.
const DefaultMinScore = 0.70

// Candidate is one piece of on-screen text with its bounds, as reported by a
// backend before ranking.
type Candidate struct {
	Text string
	Rect image.Rectangle
}

// Match is a ranked candidate.
type Match struct {
	Text  string
	Score float64
	Rect  image.Rectangle
}

// Center is the click target for the match.
func (m Match) Center() image.Point {
	return image.Pt((m.Rect.Min.X+m.Rect.Max.X)/2, (m.Rect.Min.Y+m.Rect.Max.Y)/2)
}

// Locator finds query text within the given frame. A non-nil region restricts
// the search to that part of the screen; returned rects are always in full
// screen coordinates.
type Locator interface {
	Locate(ctx context.Context, query string, frame image.Image, region *image.Rectangle) ([]Match, error)
}

// Score rates how well candidate text answers the query, in [0, 1].
// An exact (case-folded) match is 1.0. A substring hit is capped at 0.95 and
// discounted by how much surrounding text dilutes it. Everything else falls
// through to sequence similarity.
func Score(query, candidate string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}
	if strings.Contains(c, q) {
		s := float64(len(q)) / (float64(len(c)) + 1e-5)
		if s > 0.95 {
			s = 0.95
		}
		return s
	}
	return similarity(q, c)
}

// similarity is the Ratcliff/Obershelp measure: twice the total length of the
// recursively matched common substrings over the combined length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 0
	}
	matched := commonChars(ra, rb)
	return 2.0 * float64(matched) / float64(len(ra)+len(rb))
}

func commonChars(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += commonChars(a[:ai], b[:bi])
	total += commonChars(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// lengths[j] is the length of the common suffix ending at a[i-1], b[j-1]
	// for the previous row.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}

// Rank scores candidates against query, drops those below minScore, and
// orders the rest by score then area, both descending. Larger hit regions win
// ties because they are easier click targets.
func Rank(query string, cands []Candidate, minScore float64) []Match {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	matches := make([]Match, 0, len(cands))
	for _, c := range cands {
		s := Score(query, c.Text)
		if s < minScore {
			continue
		}
		matches = append(matches, Match{Text: c.Text, Score: s, Rect: c.Rect})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return area(matches[i].Rect) > area(matches[j].Rect)
	})
	return matches
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// FilterRegion keeps matches whose bounds intersect region. A nil region
// keeps everything.
func FilterRegion(matches []Match, region *image.Rectangle) []Match {
	if region == nil {
		return matches
	}
	out := matches[:0]
	for _, m := range matches {
		if m.Rect.Overlaps(*region) {
			out = append(out, m)
		}
	}
	return out
}
