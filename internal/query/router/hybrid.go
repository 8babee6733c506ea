package router

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/querycontext"
)

// executeHybrid runs the plan and the search concurrently and fuses both
// rankings. Either side may fail; the query fails only when both do.
func (r *Router) executeHybrid(ctx context.Context, route *Route) (*models.QueryResult, error) {
	var (
		planResult, searchResult *models.QueryResult
		planErr, searchErr       error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		planResult, planErr = r.executePlan(gctx, route.Plan)
		return nil
	})
	g.Go(func() error {
		searchResult, searchErr = r.executeSearch(gctx, route.Search)
		return nil
	})
	_ = g.Wait()

	if planErr != nil && searchErr != nil {
		var merr *multierror.Error
		merr = multierror.Append(merr,
			fmt.Errorf("aggregation store: %w", planErr),
			fmt.Errorf("ranked search: %w", searchErr))
		return nil, merr.ErrorOrNil()
	}

	var lists [][]models.Row
	meta := map[string]interface{}{}
	if planErr == nil {
		lists = append(lists, planResult.Rows)
	} else {
		meta["degraded"] = string(models.DataSourceAggregationStore)
		r.logger.Warn("hybrid store leg failed", map[string]interface{}{"error": planErr.Error()})
	}
	if searchErr == nil {
		lists = append(lists, searchResult.Rows)
	} else {
		meta["degraded"] = string(models.DataSourceRankedSearch)
		r.logger.Warn("hybrid search leg failed", map[string]interface{}{"error": searchErr.Error()})
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	limit := r.config.TopK
	if route.Plan != nil && route.Plan.Limit() > 0 {
		limit = route.Plan.Limit()
	}
	rows := FuseRRF(r.config.RRFConstant, limit, lists...)
	return &models.QueryResult{Rows: rows, Count: len(rows), Metadata: meta}, nil
}

// FuseRRF unions ranked lists by employee_id and orders them by Reciprocal
// Rank Fusion: score(d) = sum over lists of 1/(k + rank). Fields from earlier
// lists win; later lists only fill missing keys.
func FuseRRF(k, limit int, lists ...[]models.Row) []models.Row {
	type fused struct {
		row   models.Row
		score float64
		first int
	}
	byKey := map[string]*fused{}
	var order []*fused
	seq := 0

	for _, list := range lists {
		for rank, row := range list {
			key := fmt.Sprint(row[querycontext.KeyField])
			f, ok := byKey[key]
			if !ok {
				f = &fused{row: row.Clone(), first: seq}
				byKey[key] = f
				order = append(order, f)
			} else {
				for field, v := range row {
					if _, exists := f.row[field]; !exists {
						f.row[field] = v
					}
				}
			}
			f.score += 1.0 / float64(k+rank+1)
			seq++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].score != order[j].score {
			return order[i].score > order[j].score
		}
		return order[i].first < order[j].first
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	out := make([]models.Row, len(order))
	for i, f := range order {
		f.row["rrf_score"] = f.score
		out[i] = f.row
	}
	return out
}
