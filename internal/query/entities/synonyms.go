package entities

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[A-Za-z0-9.+#]+|[^A-Za-z0-9.+#]+`)

// ExpandQuery rewrites shorthand (devs, mgr, ml, ...) into full words so
// free-text search sees the vocabulary used in the indexed documents.
func (l *Library) ExpandQuery(text string) string {
	tokens := wordRe.FindAllString(text, -1)
	var b strings.Builder
	for _, tok := range tokens {
		if full, ok := l.termSyn[strings.ToLower(tok)]; ok {
			b.WriteString(full)
			continue
		}
		b.WriteString(tok)
	}
	return b.String()
}

// NormalizeTerm lower-cases, trims and singularizes one word.
func (l *Library) NormalizeTerm(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if full, ok := l.termSyn[w]; ok {
		w = full
	}
	return l.Singular(w)
}
