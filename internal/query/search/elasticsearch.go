package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"hr-query-engine/internal/models"
)

type ElasticsearchConfig struct {
	Index         string
	Fields        []string
	VectorField   string
	NumCandidates int
}

func DefaultElasticsearchConfig() ElasticsearchConfig {
	return ElasticsearchConfig{
		Index:         "hr-employees",
		Fields:        []string{"full_name^3", "role^2", "department^2", "certifications^2", "current_project", "location", "manager_feedback"},
		VectorField:   "embedding",
		NumCandidates: 100,
	}
}

// ElasticsearchSearcher combines multi_match, optional knn and filter clauses.
type ElasticsearchSearcher struct {
	client *elasticsearch.Client
	config ElasticsearchConfig
	logger Logger
}

func NewElasticsearchSearcher(client *elasticsearch.Client, config ElasticsearchConfig, log Logger) *ElasticsearchSearcher {
	defaults := DefaultElasticsearchConfig()
	if config.Index == "" {
		config.Index = defaults.Index
	}
	if len(config.Fields) == 0 {
		config.Fields = defaults.Fields
	}
	if config.VectorField == "" {
		config.VectorField = defaults.VectorField
	}
	if config.NumCandidates <= 0 {
		config.NumCandidates = defaults.NumCandidates
	}
	return &ElasticsearchSearcher{
		client: client,
		config: config,
		logger: log.With(map[string]interface{}{
			"component": "elasticsearch-searcher",
			"index":     config.Index,
		}),
	}
}

func (s *ElasticsearchSearcher) Search(ctx context.Context, req Request) ([]Document, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(s.BuildQuery(req))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	start := time.Now()
	esReq := esapi.SearchRequest{
		Index: []string{s.config.Index},
		Body:  bytes.NewReader(body),
	}
	res, err := esReq.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSearchQueryFailed, err)
	}
	if res.IsError() {
		reason := gjson.GetBytes(raw, "error.reason").String()
		return nil, fmt.Errorf("%w: %s %s", ErrSearchQueryFailed, res.Status(), reason)
	}

	docs := parseHits(raw)
	s.logger.Info("search completed", map[string]interface{}{
		"hits":      len(docs),
		"totalHits": gjson.GetBytes(raw, "hits.total.value").Int(),
		"took":      time.Since(start).Milliseconds(),
	})
	return docs, nil
}

// BuildQuery returns the search body for a request.
func (s *ElasticsearchSearcher) BuildQuery(req Request) map[string]interface{} {
	k := req.topK()
	boolQuery := map[string]interface{}{}

	if req.Query != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":     req.Query,
					"fields":    s.config.Fields,
					"type":      "best_fields",
					"fuzziness": "AUTO",
				},
			},
		}
	}

	filters := filterClauses(req.Filters)
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	body := map[string]interface{}{
		"size":    k,
		"query":   map[string]interface{}{"bool": boolQuery},
		"_source": map[string]interface{}{"excludes": []string{s.config.VectorField}},
	}

	if len(req.Vector) > 0 {
		knn := map[string]interface{}{
			"field":          s.config.VectorField,
			"query_vector":   req.Vector,
			"k":              k,
			"num_candidates": max(s.config.NumCandidates, k),
		}
		if len(filters) > 0 {
			knn["filter"] = filters
		}
		body["knn"] = knn
	}
	return body
}

func filterClauses(conds []models.Condition) []interface{} {
	var out []interface{}
	for _, c := range conds {
		switch c.Op {
		case models.OpEq, models.OpContains:
			out = append(out, map[string]interface{}{
				"match": map[string]interface{}{c.Field: map[string]interface{}{"query": c.Value, "operator": "and"}},
			})
		case models.OpIn:
			var should []interface{}
			for _, v := range toList(c.Value) {
				should = append(should, map[string]interface{}{
					"match": map[string]interface{}{c.Field: map[string]interface{}{"query": v, "operator": "and"}},
				})
			}
			out = append(out, map[string]interface{}{
				"bool": map[string]interface{}{"should": should, "minimum_should_match": 1},
			})
		case models.OpNe:
			out = append(out, map[string]interface{}{
				"bool": map[string]interface{}{"must_not": []interface{}{
					map[string]interface{}{"match": map[string]interface{}{c.Field: c.Value}},
				}},
			})
		case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
			out = append(out, map[string]interface{}{
				"range": map[string]interface{}{c.Field: map[string]interface{}{string(c.Op): c.Value}},
			})
		}
	}
	return out
}

func parseHits(raw []byte) []Document {
	hits := gjson.GetBytes(raw, "hits.hits").Array()
	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		fields := models.Row{}
		if src, ok := hit.Get("_source").Value().(map[string]interface{}); ok {
			fields = models.Row(src)
		}
		docs = append(docs, Document{
			ID:     hit.Get("_id").String(),
			Score:  hit.Get("_score").Float(),
			Fields: fields,
		})
	}
	return docs
}

func toList(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		var out []interface{}
		for _, p := range strings.Split(t, ",") {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return []interface{}{v}
}
