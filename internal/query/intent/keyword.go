package intent

import (
	"context"
	"fmt"
	"strings"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/entities"
)

const (
	KeywordMatchConfidence   = 0.8
	KeywordDefaultConfidence = 0.6
	DefaultRankingLimit      = 10
)

// intentGroups are evaluated in priority order; the first group with a hit wins.
var intentGroups = []struct {
	queryType models.QueryType
	phrases   []string
	words     []string
}{
	{
		queryType: models.QueryTypeCount,
		phrases:   []string{"how many", "number of", "count of", "total number", "headcount"},
		words:     []string{"count"},
	},
	{
		queryType: models.QueryTypeComparison,
		phrases:   []string{"difference between", "compared to", "across departments", "each department", "per department", "by department", "across roles", "by role", "per role"},
		words:     []string{"compare", "comparison", "versus", "vs"},
	},
	{
		queryType: models.QueryTypeRanking,
		phrases:   []string{"rank by", "ranked by"},
		words:     []string{"top", "bottom", "best", "worst", "highest", "lowest", "rank", "ranking", "most", "least", "oldest", "youngest"},
	},
	{
		queryType: models.QueryTypeAnalytics,
		phrases:   []string{"break down", "breakdown of"},
		words:     []string{"average", "avg", "mean", "statistics", "stats", "analytics", "analysis", "analyze", "distribution", "sum", "summary", "median"},
	},
}

var aggregationWords = []struct {
	agg   models.AggregationType
	words []string
}{
	{models.AggregationAvg, []string{"average", "avg", "mean", "median"}},
	{models.AggregationSum, []string{"sum", "total"}},
	{models.AggregationMax, []string{"maximum", "max", "highest"}},
	{models.AggregationMin, []string{"minimum", "min", "lowest"}},
}

// KeywordClassifier is the deterministic classifier. The same query and
// library always yield the same intent.
type KeywordClassifier struct {
	extractor *Extractor
}

func NewKeywordClassifier(library *entities.Library) *KeywordClassifier {
	return &KeywordClassifier{extractor: NewExtractor(library)}
}

func (k *KeywordClassifier) Classify(_ context.Context, query string) (*models.QueryIntent, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty query", ErrIntentDetection)
	}
	lower := strings.ToLower(trimmed)

	queryType, matched := DetectQueryType(lower)
	confidence := KeywordDefaultConfidence
	if matched {
		confidence = KeywordMatchConfidence
	}

	ents := k.extractor.Extract(trimmed)
	Refine(queryType, lower, &ents)

	source := models.DataSourceAggregationStore
	if queryType.IsSearch() {
		source = models.DataSourceRankedSearch
		if ents.HasStructured() {
			source = models.DataSourceHybrid
		}
	}

	return models.NewQueryIntent(queryType, source, confidence, ents, StrategyKeyword)
}

// DetectQueryType applies the priority-ordered keyword groups.
func DetectQueryType(lower string) (models.QueryType, bool) {
	tokens := words(lower)
	for _, group := range intentGroups {
		for _, p := range group.phrases {
			if strings.Contains(lower, p) {
				return group.queryType, true
			}
		}
		for _, w := range group.words {
			for _, tok := range tokens {
				if tok == w {
					return group.queryType, true
				}
			}
		}
	}
	return models.QueryTypeEmployeeSearch, false
}

// Refine fills in the type-dependent entities: accumulator, grouping, sort and limit.
func Refine(queryType models.QueryType, lower string, ents *models.Entities) {
	metric := ""
	if len(ents.Fields) > 0 {
		metric = ents.Fields[0]
	}

	switch queryType {
	case models.QueryTypeCount:
		ents.AggregationType = models.AggregationCount

	case models.QueryTypeAnalytics:
		if ents.AggregationType == models.AggregationNone {
			ents.AggregationType = models.AggregationAvg
			for _, entry := range aggregationWords {
				if containsAny(lower, entry.words) {
					ents.AggregationType = entry.agg
					break
				}
			}
		}
		if ents.AggregationField == "" {
			ents.AggregationField = metric
		}

	case models.QueryTypeComparison:
		if ents.AggregationType == models.AggregationNone {
			ents.AggregationType = models.AggregationAvg
		}
		if ents.AggregationField == "" {
			if metric == "" {
				metric = "performance_rating"
			}
			ents.AggregationField = metric
		}
		if ents.GroupBy == "" {
			ents.GroupBy = "department"
			if strings.Contains(lower, "role") {
				ents.GroupBy = "role"
			}
		}

	case models.QueryTypeRanking:
		if ents.Sort == nil {
			if metric == "" {
				metric = "performance_rating"
			}
			ents.Sort = &models.SortSpec{Field: metric, Direction: InferDirection(lower)}
		}
		if ents.Limit == 0 {
			ents.Limit = DefaultRankingLimit
		}
	}

	if ents.AggregationField != "" && !contains(ents.Fields, ents.AggregationField) {
		ents.Fields = append(ents.Fields, ents.AggregationField)
	}
	if ents.Sort != nil && !contains(ents.Fields, ents.Sort.Field) {
		ents.Fields = append(ents.Fields, ents.Sort.Field)
	}
}

func containsAny(text string, candidates []string) bool {
	for _, c := range candidates {
		if containsWord(text, c) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
