package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"hr-query-engine/internal/models"
	"hr-query-engine/internal/query/pipeline"
	"hr-query-engine/internal/query/querycontext"
)

// PostgresStore compiles a plan into one SQL statement. Each collection is a
// table named after it; join/flatten become LEFT JOINs on employee_id.
type PostgresStore struct {
	db     *sql.DB
	schema string
	logger Logger
}

func NewPostgresStore(db *sql.DB, schema string, log Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		schema: schema,
		logger: log.With(map[string]interface{}{
			"component": "postgres-store",
		}),
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Execute(ctx context.Context, plan *pipeline.ExecutionPlan) (*models.QueryResult, error) {
	start := time.Now()

	query, args, err := s.Compile(plan)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	docs, err := scanRows(rows)
	if err != nil {
		return nil, err
	}

	result := finish(plan, docs)
	result.ExecutionTimeMs = models.Millis(time.Since(start))

	s.logger.Info("plan executed", map[string]interface{}{
		"count": result.Count,
		"took":  result.ExecutionTimeMs,
	})
	return result, nil
}

// compiler accumulates SQL clauses while walking the stages in order.
type compiler struct {
	schema  string
	base    querycontext.Collection
	joins   []string
	coerced map[string]bool
	where   []string
	args    []interface{}
	selects []string
	groupBy string
	orderBy string
	limit   string
	grouped bool
}

// Compile renders the plan as a parameterized statement.
func (s *PostgresStore) Compile(plan *pipeline.ExecutionPlan) (string, []interface{}, error) {
	if err := plan.Validate(); err != nil {
		return "", nil, err
	}

	c := &compiler{schema: s.schema, base: plan.Base, coerced: map[string]bool{}}
	for _, stage := range plan.Stages {
		if err := c.stage(stage); err != nil {
			return "", nil, err
		}
	}

	if len(c.selects) == 0 {
		c.selects = []string{c.column(querycontext.KeyField) + ` AS "employee_id"`}
		if plan.Base == querycontext.BaseCollection {
			c.selects = append(c.selects, c.column(querycontext.NameField)+` AS "full_name"`)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(c.selects, ", "))
	fmt.Fprintf(&b, " FROM %s AS %s", c.table(plan.Base), quoteIdent(string(plan.Base)))
	for _, j := range c.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(c.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(c.where, " AND "))
	}
	if c.groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(c.groupBy)
	}
	if c.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(c.orderBy)
	}
	if c.limit != "" {
		b.WriteString(" LIMIT ")
		b.WriteString(c.limit)
	}
	return b.String(), c.args, nil
}

func (c *compiler) stage(s pipeline.Stage) error {
	switch s.Kind {
	case pipeline.StageJoin:
		alias := quoteIdent(string(s.Collection))
		c.joins = append(c.joins, fmt.Sprintf("LEFT JOIN %s AS %s ON %s.%s = %s.%s",
			c.table(s.Collection), alias,
			alias, quoteIdent(querycontext.KeyField),
			quoteIdent(string(c.base)), quoteIdent(querycontext.KeyField)))
	case pipeline.StageFlatten:
		// LEFT JOIN already yields one row per match and keeps unmatched employees.
	case pipeline.StageCoerce:
		for _, f := range s.Fields {
			c.coerced[c.qualify(f)] = true
		}
	case pipeline.StageFilter:
		if c.grouped {
			return fmt.Errorf("%w: filter after group", ErrUnsupportedStage)
		}
		for _, cond := range s.Conditions {
			clause, err := c.condition(cond)
			if err != nil {
				return err
			}
			c.where = append(c.where, clause)
		}
	case pipeline.StageGroup:
		c.grouped = true
		if s.GroupKey != "" {
			c.selects = append(c.selects, c.column(s.GroupKey)+" AS "+quoteIdent(pipeline.GroupKeyField))
			c.groupBy = "1"
		}
		for _, acc := range s.Accumulators {
			c.selects = append(c.selects, c.accumulator(acc)+" AS "+quoteIdent(acc.Name))
		}
	case pipeline.StageSort:
		dir := "ASC"
		if s.Direction == models.SortDesc {
			dir = "DESC"
		}
		if c.grouped {
			c.orderBy = quoteIdent(s.SortField) + " " + dir
		} else {
			c.orderBy = c.expr(querycontext.Qualified(s.SortField)) + " " + dir + " NULLS LAST"
		}
	case pipeline.StageLimit:
		c.limit = c.bind(s.Limit)
	case pipeline.StageProject:
		c.selects = c.selects[:0]
		for _, f := range s.Fields {
			c.selects = append(c.selects, c.expr(f)+" AS "+quoteIdent(pipeline.OutputName(f)))
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedStage, s.Kind)
	}
	return nil
}

func (c *compiler) condition(cond models.Condition) (string, error) {
	switch cond.Op {
	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		ops := map[models.Operator]string{models.OpGt: ">", models.OpGte: ">=", models.OpLt: "<", models.OpLte: "<="}
		return fmt.Sprintf("%s %s %s", safeNumber(c.column(cond.Field)), ops[cond.Op], c.bind(pipeline.CoerceNumber(cond.Value))), nil
	case models.OpEq, models.OpNe:
		op := "="
		if cond.Op == models.OpNe {
			op = "<>"
		}
		if isNumber(cond.Value) {
			return fmt.Sprintf("%s %s %s", safeNumber(c.column(cond.Field)), op, c.bind(pipeline.CoerceNumber(cond.Value))), nil
		}
		return fmt.Sprintf("lower(%s::text) %s lower(%s)", c.column(cond.Field), op, c.bind(fmt.Sprint(cond.Value))), nil
	case models.OpIn:
		values := listOf(cond.Value)
		lowered := make([]string, len(values))
		for i, v := range values {
			lowered[i] = strings.ToLower(fmt.Sprint(v))
		}
		return fmt.Sprintf("lower(%s::text) = ANY(%s)", c.column(cond.Field), c.bind(pq.Array(lowered))), nil
	case models.OpContains:
		return fmt.Sprintf("%s::text ILIKE %s", c.column(cond.Field), c.bind("%"+fmt.Sprint(cond.Value)+"%")), nil
	}
	return "", fmt.Errorf("%w: operator %s", ErrUnsupportedStage, cond.Op)
}

func (c *compiler) accumulator(acc pipeline.Accumulator) string {
	if acc.Op == models.AggregationCount {
		return "COUNT(*)"
	}
	return fmt.Sprintf("COALESCE(%s(%s), 0)", strings.ToUpper(string(acc.Op)), safeNumber(c.column(acc.Field)))
}

// expr returns the column, cast when an earlier stage coerced it.
func (c *compiler) expr(path string) string {
	if c.coerced[c.qualify(path)] {
		return safeNumber(c.column(path))
	}
	return c.column(path)
}

// qualify prefixes an unqualified field with the plan's base collection.
func (c *compiler) qualify(path string) string {
	if strings.Contains(path, ".") {
		return path
	}
	return string(c.base) + "." + path
}

func (c *compiler) column(path string) string {
	head, rest, _ := strings.Cut(c.qualify(path), ".")
	return quoteIdent(head) + "." + quoteIdent(rest)
}

func (c *compiler) table(coll querycontext.Collection) string {
	if c.schema == "" {
		return quoteIdent(string(coll))
	}
	return quoteIdent(c.schema) + "." + quoteIdent(string(coll))
}

func (c *compiler) bind(v interface{}) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

// safeNumber casts text to double precision; anything unparsable or null is 0.
func safeNumber(col string) string {
	return fmt.Sprintf(`COALESCE(CASE WHEN btrim(%[1]s::text) ~ '^-?[0-9]+(\.[0-9]+)?$' THEN btrim(%[1]s::text)::double precision END, 0)`, col)
}

func quoteIdent(s string) string {
	return pq.QuoteIdentifier(s)
}

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := []models.Row{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		row := make(models.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}
