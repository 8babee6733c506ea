package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"hr-query-engine/internal/models"
)

// pgvectorColumns are returned for every hit, in order.
var pgvectorColumns = []string{"employee_id", "full_name", "department", "role", "location", "certifications"}

// PgvectorSearcher ranks rows of a flat employee table by cosine distance of
// its embedding column, or by full-text rank when no vector is given.
type PgvectorSearcher struct {
	db     *sql.DB
	table  string
	logger Logger
}

func NewPgvectorSearcher(db *sql.DB, table string, log Logger) *PgvectorSearcher {
	if table == "" {
		table = "employee_search"
	}
	return &PgvectorSearcher{
		db:    db,
		table: table,
		logger: log.With(map[string]interface{}{
			"component": "pgvector-searcher",
		}),
	}
}

func (s *PgvectorSearcher) Search(ctx context.Context, req Request) ([]Document, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	query, args := s.BuildQuery(req)
	start := time.Now()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id, name                    string
			dept, role, location, certs sql.NullString
			score                       float64
		)
		if err := rows.Scan(&id, &name, &dept, &role, &location, &certs, &score); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSearchQueryFailed, err)
		}
		docs = append(docs, Document{
			ID:    id,
			Score: score,
			Fields: models.Row{
				"employee_id":    id,
				"full_name":      name,
				"department":     dept.String,
				"role":           role.String,
				"location":       location.String,
				"certifications": certs.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	s.logger.Info("search completed", map[string]interface{}{
		"hits":   len(docs),
		"vector": len(req.Vector) > 0,
		"took":   time.Since(start).Milliseconds(),
	})
	return docs, nil
}

// BuildQuery renders the statement and its arguments.
func (s *PgvectorSearcher) BuildQuery(req Request) (string, []interface{}) {
	var (
		args  []interface{}
		where []string
		score string
		order string
	)
	bind := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(req.Vector) > 0 {
		p := bind(pgvector.NewVector(req.Vector))
		score = fmt.Sprintf("1 - (embedding <=> %s)", p)
		order = fmt.Sprintf("embedding <=> %s", p)
	} else {
		p := bind(req.Query)
		tsv := "to_tsvector('simple', coalesce(search_text, ''))"
		score = fmt.Sprintf("ts_rank(%s, plainto_tsquery('simple', %s))", tsv, p)
		where = append(where, fmt.Sprintf("%s @@ plainto_tsquery('simple', %s)", tsv, p))
		order = "score DESC"
	}

	for _, c := range req.Filters {
		col := pq.QuoteIdentifier(c.Field)
		switch c.Op {
		case models.OpEq:
			where = append(where, fmt.Sprintf("lower(%s::text) = lower(%s)", col, bind(fmt.Sprint(c.Value))))
		case models.OpNe:
			where = append(where, fmt.Sprintf("lower(%s::text) <> lower(%s)", col, bind(fmt.Sprint(c.Value))))
		case models.OpIn:
			var values []string
			for _, v := range toList(c.Value) {
				values = append(values, strings.ToLower(fmt.Sprint(v)))
			}
			where = append(where, fmt.Sprintf("lower(%s::text) = ANY(%s)", col, bind(pq.Array(values))))
		case models.OpContains:
			where = append(where, fmt.Sprintf("%s::text ILIKE %s", col, bind("%"+fmt.Sprint(c.Value)+"%")))
		case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
			ops := map[models.Operator]string{models.OpGt: ">", models.OpGte: ">=", models.OpLt: "<", models.OpLte: "<="}
			where = append(where, fmt.Sprintf("%s %s %s", col, ops[c.Op], bind(c.Value)))
		}
	}

	cols := make([]string, len(pgvectorColumns))
	for i, c := range pgvectorColumns {
		cols[i] = pq.QuoteIdentifier(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s, %s AS score FROM %s", strings.Join(cols, ", "), score, pq.QuoteIdentifier(s.table))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY %s LIMIT %s", order, bind(req.topK()))
	return b.String(), args
}
