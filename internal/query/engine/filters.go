package engine

import (
	"fmt"
	"sort"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
)

// applyFilters merges caller filters into a copy of the intent. Unknown keys
// are ignored with a warning.
func (e *Engine) applyFilters(qi *models.QueryIntent, filters map[string]interface{}) (*models.QueryIntent, error) {
	if len(filters) == 0 {
		return qi, nil
	}
	ents := qi.Entities.Clone()
	var ignored []string

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := filters[k]
		switch strings.ToLower(k) {
		case "department", "departments":
			ents.Departments = merge(ents.Departments, stringsOf(v))
		case "role", "roles":
			ents.Roles = merge(ents.Roles, stringsOf(v))
		case "skill", "skills":
			ents.Skills = merge(ents.Skills, stringsOf(v))
		case "location", "locations":
			ents.Locations = merge(ents.Locations, stringsOf(v))
		case "limit":
			if n := int(pipeline.CoerceNumber(v)); n > 0 {
				ents.Limit = n
			}
		default:
			ignored = append(ignored, k)
		}
	}
	if len(ignored) > 0 {
		e.logger.Warn("ignoring unknown filters", map[string]interface{}{
			"filters": ignored,
		})
	}
	return models.NewQueryIntent(qi.QueryType, qi.DataSource, qi.Confidence, ents, qi.Strategy)
}

func stringsOf(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func merge(have, add []string) []string {
	out := append([]string(nil), have...)
	for _, a := range add {
		dup := false
		for _, h := range out {
			if strings.EqualFold(h, a) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}
