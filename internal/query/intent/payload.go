package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"hr-query-engine/internal/common/validation"
	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
)

type rangePayload struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type entitiesPayload struct {
	Departments      []string      `json:"departments,omitempty"`
	Roles            []string      `json:"roles,omitempty"`
	Skills           []string      `json:"skills,omitempty"`
	Locations        []string      `json:"locations,omitempty"`
	ExperienceRange  *rangePayload `json:"experience_range,omitempty"`
	PerformanceRange *rangePayload `json:"performance_range,omitempty"`
	AgeRange         *rangePayload `json:"age_range,omitempty"`
	LeaveThreshold   *rangePayload `json:"leave_threshold,omitempty"`
	LeavePattern     string        `json:"leave_pattern,omitempty"`
	PerformanceLevel string        `json:"performance_level,omitempty"`
	EngagementLevel  string        `json:"engagement_level,omitempty"`
	AggregationType  string        `json:"aggregation_type,omitempty"`
	AggregationField string        `json:"aggregation_field,omitempty"`
	GroupBy          string        `json:"group_by,omitempty"`
	SortBy           string        `json:"sort_by,omitempty"`
	SortOrder        string        `json:"sort_order,omitempty"`
	Limit            int           `json:"limit,omitempty"`
	Fields           []string      `json:"fields,omitempty"`
}

// Payload is the structured classification returned by the completion service.
type Payload struct {
	QueryType  string          `json:"query_type"`
	DataSource string          `json:"data_source,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Entities   entitiesPayload `json:"entities"`
}

var (
	rangeProperty = validation.Property{
		Type: "object",
		Properties: map[string]validation.Property{
			"min": {Type: "number"},
			"max": {Type: "number"},
		},
	}
	stringList = validation.Property{Type: "array", Items: &validation.Property{Type: "string"}}
	levelEnum  = []string{"high", "low", "maximum", "minimum", ""}
)

// PayloadSchema describes the classification payload.
func PayloadSchema() validation.JSONSchema {
	types := []string{}
	for _, qt := range models.QueryTypes() {
		types = append(types, string(qt))
	}
	types = append(types, "count", "skill_search")

	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"query_type":  {Type: "string", Enum: types},
			"data_source": {Type: "string"},
			"confidence":  {Type: "number"},
			"entities": {
				Type: "object",
				Properties: map[string]validation.Property{
					"departments":       stringList,
					"roles":             stringList,
					"skills":            stringList,
					"locations":         stringList,
					"fields":            stringList,
					"experience_range":  rangeProperty,
					"performance_range": rangeProperty,
					"age_range":         rangeProperty,
					"leave_threshold":   rangeProperty,
					"leave_pattern":     {Type: "string", Enum: levelEnum},
					"performance_level": {Type: "string", Enum: levelEnum},
					"engagement_level":  {Type: "string", Enum: levelEnum},
					"aggregation_type":  {Type: "string"},
					"aggregation_field": {Type: "string"},
					"group_by":          {Type: "string"},
					"sort_by":           {Type: "string"},
					"sort_order":        {Type: "string", Enum: []string{"asc", "desc", "ascending", "descending", ""}},
					"limit":             {Type: "integer", Minimum: validation.Float(1)},
				},
			},
		},
		Required:             []string{"query_type"},
		AdditionalProperties: true,
	}
}

// ParsePayload decodes a completion response, recovering the first balanced
// {...} span when the text around it is not pure JSON.
func ParsePayload(text string) (*Payload, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		span, ok := ExtractJSONSpan(text)
		if !ok {
			return nil, fmt.Errorf("%w: no JSON object in response", ErrIntentParse)
		}
		if err := json.Unmarshal([]byte(span), &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIntentParse, err)
		}
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrIntentParse)
	}
	validation.StripNulls(obj)
	if _, ok := obj["entities"]; !ok {
		obj["entities"] = map[string]interface{}{}
	}

	result, err := validation.Validate(PayloadSchema(), obj)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentParse, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrIntentParse, strings.Join(result.GetErrorMessages(), "; "))
	}

	normalized, _ := json.Marshal(obj)
	var payload Payload
	if err := json.Unmarshal(normalized, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentParse, err)
	}
	return &payload, nil
}

// ExtractJSONSpan returns the first balanced object span in text.
func ExtractJSONSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func (p *Payload) toIntent(library *entities.Library, query string) (*models.QueryIntent, error) {
	qt, err := models.ParseQueryType(p.QueryType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntentParse, err)
	}

	ds, err := models.ParseDataSource(p.DataSource)
	if err != nil {
		ds = models.DataSourceAggregationStore
		if qt.IsSearch() {
			ds = models.DataSourceRankedSearch
		}
	}

	confidence := 0.5
	if p.Confidence != nil && *p.Confidence >= 0 && *p.Confidence <= 1 {
		confidence = *p.Confidence
	}

	e := p.Entities
	ents := models.Entities{
		Departments:      canonicalize(library, entities.KindDepartment, e.Departments),
		Roles:            canonicalize(library, entities.KindRole, e.Roles),
		Skills:           canonicalize(library, entities.KindSkill, e.Skills),
		Locations:        canonicalize(library, entities.KindLocation, e.Locations),
		Experience:       e.ExperienceRange.toRange(),
		Performance:      e.PerformanceRange.toRange(),
		Age:              e.AgeRange.toRange(),
		LeaveThreshold:   e.LeaveThreshold.toRange(),
		AggregationField: e.AggregationField,
		GroupBy:          e.GroupBy,
		Limit:            e.Limit,
		Fields:           e.Fields,
	}
	ents.LeavePattern, _ = models.ParseLevel(e.LeavePattern)
	ents.PerformanceLevel, _ = models.ParseLevel(e.PerformanceLevel)
	ents.EngagementLevel, _ = models.ParseLevel(e.EngagementLevel)
	if agg, err := models.ParseAggregationType(strings.ToLower(e.AggregationType)); err == nil {
		ents.AggregationType = agg
	}
	if e.SortBy != "" {
		dir := models.SortDesc
		if strings.HasPrefix(strings.ToLower(e.SortOrder), "asc") {
			dir = models.SortAsc
		}
		ents.Sort = &models.SortSpec{Field: e.SortBy, Direction: dir}
	}

	Refine(qt, strings.ToLower(query), &ents)

	return models.NewQueryIntent(qt, ds, confidence, ents, StrategyLLM)
}

func (r *rangePayload) toRange() *models.Range {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return nil
	}
	return &models.Range{Min: r.Min, Max: r.Max}
}

func canonicalize(library *entities.Library, kind string, values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]bool)
	for _, v := range values {
		if c, ok := library.Canonical(kind, v); ok {
			v = c
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
