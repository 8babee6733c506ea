package search

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/store"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// searchableFields are tokenized into the in-memory index.
var searchableFields = []string{
	"full_name", "department", "role", "location", "certifications",
	"current_project", "manager_feedback", "work_mode", "grade_band",
}

type indexedDoc struct {
	id     string
	fields models.Row
	terms  map[string]int
	length int
}

// MemorySearcher is a BM25 ranked searcher over flat employee documents.
type MemorySearcher struct {
	docs      []indexedDoc
	docFreq   map[string]int
	avgDocLen float64
	logger    Logger
}

func NewMemorySearcher(docs []models.Row, log Logger) *MemorySearcher {
	s := &MemorySearcher{
		docFreq: map[string]int{},
		logger: log.With(map[string]interface{}{
			"component": "memory-searcher",
		}),
	}

	total := 0
	for _, d := range docs {
		doc := indexedDoc{id: fmt.Sprint(d["employee_id"]), fields: d, terms: map[string]int{}}
		for _, f := range searchableFields {
			for _, tok := range tokenize(fmt.Sprint(valueOrEmpty(d[f]))) {
				doc.terms[tok]++
				doc.length++
			}
		}
		for tok := range doc.terms {
			s.docFreq[tok]++
		}
		total += doc.length
		s.docs = append(s.docs, doc)
	}
	if len(s.docs) > 0 {
		s.avgDocLen = float64(total) / float64(len(s.docs))
	}
	return s
}

func (s *MemorySearcher) Search(ctx context.Context, req Request) ([]Document, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(req.Query)
	var hits []Document
	for _, d := range s.docs {
		if !store.MatchAll(d.fields, req.Filters) {
			continue
		}
		score := s.score(d, terms)
		if score <= 0 && len(terms) > 0 && len(req.Filters) == 0 {
			continue
		}
		hits = append(hits, Document{ID: d.id, Score: score, Fields: d.fields.Clone()})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k := req.topK(); len(hits) > k {
		hits = hits[:k]
	}

	s.logger.Info("search completed", map[string]interface{}{
		"hits":  len(hits),
		"terms": len(terms),
	})
	return hits, nil
}

func (s *MemorySearcher) score(d indexedDoc, terms []string) float64 {
	n := float64(len(s.docs))
	var total float64
	for _, t := range terms {
		tf := float64(d.terms[t])
		if tf == 0 {
			continue
		}
		df := float64(s.docFreq[t])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		denom := tf + bm25K1*(1-bm25B+bm25B*float64(d.length)/s.avgDocLen)
		total += idf * tf * (bm25K1 + 1) / denom
	}
	return total
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if len(f) <= 1 || stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		out = append(out, f)
	}
	return out
}

func valueOrEmpty(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, " ")
	}
	return v
}

var stopWords = map[string]bool{
	"the": true, "and": true, "with": true, "for": true, "who": true, "are": true,
	"find": true, "show": true, "list": true, "all": true, "in": true, "of": true,
	"employees": true, "employee": true, "me": true, "get": true, "people": true,
}
