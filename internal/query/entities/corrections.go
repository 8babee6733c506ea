package entities

import (
	"sort"
	"strings"
)

const maxEditDistance = 2

// SuggestCorrections returns known terms within two edits of word, closest first.
// Words of five letters or fewer allow a single edit. A word that is already
// known yields nothing.
func (l *Library) SuggestCorrections(word string) []string {
	w := strings.ToLower(strings.TrimSpace(word))
	if len(w) < 3 {
		return nil
	}
	limit := maxEditDistance
	if len(w) <= 5 {
		limit = 1
	}
	type candidate struct {
		term string
		dist int
	}
	var cands []candidate
	for _, term := range l.KnownTerms() {
		d := levenshtein(w, strings.ToLower(term))
		if d == 0 {
			return nil
		}
		if d <= limit {
			cands = append(cands, candidate{term, d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].term < cands[j].term
	})
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.term
	}
	return out
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
