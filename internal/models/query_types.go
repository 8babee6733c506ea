// internal/models/query_types.go
package models

import "fmt"

// QueryType is the classified purpose of a natural-language question.
type QueryType string

const (
	QueryTypeCount          QueryType = "count_query"
	QueryTypeAnalytics      QueryType = "analytics"
	QueryTypeTextSearch     QueryType = "text_search"
	QueryTypeComplexFilter  QueryType = "complex_filter"
	QueryTypeComparison     QueryType = "comparison"
	QueryTypeRanking        QueryType = "ranking"
	QueryTypeCorrelation    QueryType = "correlation"
	QueryTypeRecommendation QueryType = "recommendation"
	QueryTypeTrendAnalysis  QueryType = "trend_analysis"
	QueryTypeDepartmentInfo QueryType = "department_info"
	QueryTypeEmployeeSearch QueryType = "employee_search"
	QueryTypeGeneralInfo    QueryType = "general_info"
)

var queryTypes = map[QueryType]struct{}{
	QueryTypeCount:          {},
	QueryTypeAnalytics:      {},
	QueryTypeTextSearch:     {},
	QueryTypeComplexFilter:  {},
	QueryTypeComparison:     {},
	QueryTypeRanking:        {},
	QueryTypeCorrelation:    {},
	QueryTypeRecommendation: {},
	QueryTypeTrendAnalysis:  {},
	QueryTypeDepartmentInfo: {},
	QueryTypeEmployeeSearch: {},
	QueryTypeGeneralInfo:    {},
}

// aliases accepted from upstream classifiers
var queryTypeAliases = map[string]QueryType{
	"count":        QueryTypeCount,
	"skill_search": QueryTypeEmployeeSearch,
	"search":       QueryTypeEmployeeSearch,
	"filter":       QueryTypeComplexFilter,
	"trend":        QueryTypeTrendAnalysis,
}

// ParseQueryType converts a raw string into a QueryType, rejecting unknown values.
func ParseQueryType(s string) (QueryType, error) {
	qt := QueryType(s)
	if _, ok := queryTypes[qt]; ok {
		return qt, nil
	}
	if alias, ok := queryTypeAliases[s]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown query type %q", s)
}

// QueryTypes lists every valid query type in declaration order.
func QueryTypes() []QueryType {
	return []QueryType{
		QueryTypeCount, QueryTypeAnalytics, QueryTypeTextSearch, QueryTypeComplexFilter,
		QueryTypeComparison, QueryTypeRanking, QueryTypeCorrelation, QueryTypeRecommendation,
		QueryTypeTrendAnalysis, QueryTypeDepartmentInfo, QueryTypeEmployeeSearch, QueryTypeGeneralInfo,
	}
}

// IsAggregation reports whether answers of this type are produced by a single group stage.
func (q QueryType) IsAggregation() bool {
	switch q {
	case QueryTypeCount, QueryTypeAnalytics, QueryTypeComparison:
		return true
	}
	return false
}

// IsSearch reports whether the type is a free-text lookup.
func (q QueryType) IsSearch() bool {
	return q == QueryTypeEmployeeSearch || q == QueryTypeTextSearch
}

// DataSource identifies which execution path answers a query.
type DataSource string

const (
	DataSourceAggregationStore DataSource = "aggregation_store"
	DataSourceRankedSearch     DataSource = "ranked_search"
	DataSourceHybrid           DataSource = "hybrid"
	DataSourceFallbackEngine   DataSource = "fallback_engine"
	DataSourceCache            DataSource = "cache"
	DataSourceNone             DataSource = "none"
)

// ParseDataSource accepts the three routable sources.
func ParseDataSource(s string) (DataSource, error) {
	switch DataSource(s) {
	case DataSourceAggregationStore, DataSourceRankedSearch, DataSourceHybrid:
		return DataSource(s), nil
	case "mongodb":
		return DataSourceAggregationStore, nil
	case "azure_search", "search":
		return DataSourceRankedSearch, nil
	}
	return "", fmt.Errorf("unknown data source %q", s)
}

// AggregationType selects the accumulator of a group stage.
type AggregationType string

const (
	AggregationNone  AggregationType = ""
	AggregationCount AggregationType = "count"
	AggregationAvg   AggregationType = "avg"
	AggregationMax   AggregationType = "max"
	AggregationMin   AggregationType = "min"
	AggregationSum   AggregationType = "sum"
)

// ParseAggregationType normalizes accumulator names such as "average".
func ParseAggregationType(s string) (AggregationType, error) {
	switch s {
	case "":
		return AggregationNone, nil
	case "count":
		return AggregationCount, nil
	case "avg", "average", "mean":
		return AggregationAvg, nil
	case "max", "maximum", "highest":
		return AggregationMax, nil
	case "min", "minimum", "lowest":
		return AggregationMin, nil
	case "sum", "total":
		return AggregationSum, nil
	}
	return "", fmt.Errorf("unknown aggregation type %q", s)
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Status is the outcome carried by a result envelope.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusSuccessFallback Status = "success_fallback"
	StatusError           Status = "error"
)
