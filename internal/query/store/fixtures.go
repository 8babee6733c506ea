package store

import (
	"encoding/json"
	"fmt"
	"os"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

// LoadDataset reads a JSON document of the form {"personal": [...], "employment": [...]}.
func LoadDataset(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return ParseDataset(raw)
}

func ParseDataset(raw []byte) (Dataset, error) {
	var doc map[string][]map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	known := map[querycontext.Collection]bool{}
	for _, c := range querycontext.Collections() {
		known[c] = true
	}

	data := make(Dataset, len(doc))
	for name, rows := range doc {
		c := querycontext.Collection(name)
		if !known[c] {
			return nil, fmt.Errorf("parse dataset: unknown collection %q", name)
		}
		out := make([]models.Row, 0, len(rows))
		for i, r := range rows {
			if _, ok := r[querycontext.KeyField]; !ok {
				return nil, fmt.Errorf("parse dataset: %s[%d] has no %s", name, i, querycontext.KeyField)
			}
			out = append(out, models.Row(r))
		}
		data[c] = out
	}
	if len(data[querycontext.BaseCollection]) == 0 {
		return nil, fmt.Errorf("parse dataset: %s collection is empty", querycontext.BaseCollection)
	}
	return data, nil
}

// Documents merges every collection into one flat row per employee, the shape
// a ranked-search index holds. The first row of each collection wins.
func (d Dataset) Documents() []models.Row {
	base := d[querycontext.BaseCollection]
	byKey := make(map[string]models.Row, len(base))
	out := make([]models.Row, 0, len(base))
	for _, r := range base {
		doc := r.Clone()
		byKey[keyOf(r[querycontext.KeyField])] = doc
		out = append(out, doc)
	}
	for _, c := range querycontext.Collections() {
		if c == querycontext.BaseCollection {
			continue
		}
		seen := map[string]bool{}
		for _, r := range d[c] {
			k := keyOf(r[querycontext.KeyField])
			doc, ok := byKey[k]
			if !ok || seen[k] {
				continue
			}
			seen[k] = true
			for field, v := range r {
				if _, exists := doc[field]; !exists {
					doc[field] = v
				}
			}
		}
	}
	return out
}
