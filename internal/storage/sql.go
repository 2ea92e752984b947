package storage

import (
	"fmt"
	"strings"

	"github.com/radiusdt/budget-intel/internal/models"
	"github.com/radiusdt/budget-intel/internal/status"
)

// dialect selects placeholder and cast syntax for the SQL backends.
type dialect int

const (
	dialectPostgres dialect = iota
	dialectClickHouse
)

type columnKind int

const (
	kindText columnKind = iota
	kindDate
	kindInt
	kindFloat
)

// metricColumn binds a metric table column to its MetricRow field.
type metricColumn struct {
	name string
	kind columnKind
	dest func(r *models.MetricRow) any
}

var commonMetricColumns = []metricColumn{
	{"store", kindText, func(r *models.MetricRow) any { return &r.Store }},
	{"date", kindDate, func(r *models.MetricRow) any { return &r.Date }},
	{"campaign_id", kindText, func(r *models.MetricRow) any { return &r.CampaignID }},
	{"campaign_name", kindText, func(r *models.MetricRow) any { return &r.CampaignName }},
	{"country", kindText, func(r *models.MetricRow) any { return &r.Country }},
	{"age", kindText, func(r *models.MetricRow) any { return &r.Age }},
	{"gender", kindText, func(r *models.MetricRow) any { return &r.Gender }},
	{"publisher_platform", kindText, func(r *models.MetricRow) any { return &r.PublisherPlatform }},
	{"platform_position", kindText, func(r *models.MetricRow) any { return &r.PlatformPosition }},
	{"spend", kindFloat, func(r *models.MetricRow) any { return &r.Spend }},
	{"impressions", kindInt, func(r *models.MetricRow) any { return &r.Impressions }},
	{"reach", kindInt, func(r *models.MetricRow) any { return &r.Reach }},
	{"clicks", kindInt, func(r *models.MetricRow) any { return &r.Clicks }},
	{"landing_page_views", kindInt, func(r *models.MetricRow) any { return &r.LandingPageViews }},
	{"add_to_cart", kindInt, func(r *models.MetricRow) any { return &r.AddToCart }},
	{"checkouts_initiated", kindInt, func(r *models.MetricRow) any { return &r.CheckoutsInitiated }},
	{"conversions", kindFloat, func(r *models.MetricRow) any { return &r.Conversions }},
	{"conversion_value", kindFloat, func(r *models.MetricRow) any { return &r.ConversionValue }},
	{"status", kindText, func(r *models.MetricRow) any { return &r.Status }},
	{"effective_status", kindText, func(r *models.MetricRow) any { return &r.EffectiveStatus }},
	{"frequency", kindFloat, func(r *models.MetricRow) any { return &r.Frequency }},
	{"ctr", kindFloat, func(r *models.MetricRow) any { return &r.CTR }},
}

var adsetMetricColumns = []metricColumn{
	{"adset_id", kindText, func(r *models.MetricRow) any { return &r.AdsetID }},
	{"adset_name", kindText, func(r *models.MetricRow) any { return &r.AdsetName }},
	{"adset_status", kindText, func(r *models.MetricRow) any { return &r.AdsetStatus }},
	{"adset_effective_status", kindText, func(r *models.MetricRow) any { return &r.AdsetEffectiveStatus }},
}

var adMetricColumns = []metricColumn{
	{"adset_id", kindText, func(r *models.MetricRow) any { return &r.AdsetID }},
	{"adset_name", kindText, func(r *models.MetricRow) any { return &r.AdsetName }},
	{"ad_id", kindText, func(r *models.MetricRow) any { return &r.AdID }},
	{"ad_name", kindText, func(r *models.MetricRow) any { return &r.AdName }},
	{"ad_status", kindText, func(r *models.MetricRow) any { return &r.AdStatus }},
	{"ad_effective_status", kindText, func(r *models.MetricRow) any { return &r.AdEffectiveStatus }},
}

// MetricTable returns the daily metrics table for a level.
func MetricTable(level models.Level) (string, error) {
	switch level {
	case models.LevelCampaign:
		return "meta_daily_metrics", nil
	case models.LevelAdset:
		return "meta_adset_metrics", nil
	case models.LevelAd:
		return "meta_ad_metrics", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLevel, level)
}

func idColumn(level models.Level) string {
	switch level {
	case models.LevelAdset:
		return "adset_id"
	case models.LevelAd:
		return "ad_id"
	default:
		return "campaign_id"
	}
}

func metricColumns(level models.Level) []metricColumn {
	cols := append([]metricColumn{}, commonMetricColumns...)
	switch level {
	case models.LevelAdset:
		cols = append(cols, adsetMetricColumns...)
	case models.LevelAd:
		cols = append(cols, adMetricColumns...)
	}
	return cols
}

// scanTargets returns the Scan destinations for one row in column order.
func scanTargets(cols []metricColumn, r *models.MetricRow) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c.dest(r)
	}
	return out
}

// builder accumulates a statement and its bound arguments.
type builder struct {
	d    dialect
	sb   strings.Builder
	args []any
}

func newBuilder(d dialect) *builder {
	return &builder{d: d}
}

func (b *builder) write(s string) *builder {
	b.sb.WriteString(s)
	return b
}

// bind appends v to the argument list and returns its placeholder.
func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	if b.d == dialectPostgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *builder) String() string { return b.sb.String() }

func (b *builder) selectExpr(c metricColumn) string {
	if b.d == dialectPostgres {
		switch c.kind {
		case kindDate:
			return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", c.name)
		case kindInt:
			return fmt.Sprintf("COALESCE(%s, 0)::bigint", c.name)
		case kindFloat:
			return fmt.Sprintf("COALESCE(%s, 0)::float8", c.name)
		default:
			return fmt.Sprintf("COALESCE(%s, '')", c.name)
		}
	}
	switch c.kind {
	case kindDate:
		return fmt.Sprintf("toString(%s)", c.name)
	case kindInt:
		return fmt.Sprintf("toInt64(ifNull(%s, 0))", c.name)
	case kindFloat:
		return fmt.Sprintf("toFloat64(ifNull(%s, 0))", c.name)
	default:
		return fmt.Sprintf("ifNull(%s, '')", c.name)
	}
}

func (b *builder) dateArg(v string) string {
	p := b.bind(v)
	if b.d == dialectPostgres {
		return p + "::date"
	}
	return "toDate(" + p + ")"
}

func (b *builder) storeClause(store string, caseInsensitive bool) {
	p := b.bind(store)
	if !caseInsensitive {
		b.write(" WHERE store = " + p)
		return
	}
	if b.d == dialectPostgres {
		b.write(" WHERE LOWER(store) = LOWER(" + p + ")")
		return
	}
	b.write(" WHERE lower(store) = lower(" + p + ")")
}

// statusClause renders a predicate as bound parameters on column. The zero
// predicate renders nothing.
func (b *builder) statusClause(column string, p status.Predicate) {
	if p.IsZero() {
		return
	}
	var parts []string
	if vals := p.Strings(); len(vals) > 0 {
		ph := make([]string, len(vals))
		for i, v := range vals {
			ph[i] = b.bind(v)
		}
		parts = append(parts, fmt.Sprintf("%s IN (%s)", column, strings.Join(ph, ", ")))
	}
	if p.IncludeNull {
		parts = append(parts, column+" IS NULL", column+" = ''")
	}
	b.write(" AND (" + strings.Join(parts, " OR ") + ")")
}

func (b *builder) inClause(column string, vals []string) {
	if len(vals) == 0 {
		return
	}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = b.bind(v)
	}
	b.write(fmt.Sprintf(" AND %s IN (%s)", column, strings.Join(ph, ", ")))
}

// buildMetricsQuery renders the ListMetrics statement for a dialect.
func buildMetricsQuery(d dialect, q MetricQuery) (*builder, []metricColumn, error) {
	table, err := MetricTable(q.Level)
	if err != nil {
		return nil, nil, err
	}
	cols := metricColumns(q.Level)
	b := newBuilder(d)

	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = b.selectExpr(c)
	}
	b.write("SELECT " + strings.Join(exprs, ", ") + " FROM " + table)
	b.storeClause(q.Store, false)
	if q.Start != "" {
		b.write(" AND date >= " + b.dateArg(q.Start))
	}
	if q.End != "" {
		b.write(" AND date <= " + b.dateArg(q.End))
	}
	b.statusClause(status.LevelColumn(q.Level), q.Status)
	if q.ObjectID != "" {
		b.write(" AND " + idColumn(q.Level) + " = " + b.bind(q.ObjectID))
	}
	b.write(" ORDER BY date DESC")
	return b, cols, nil
}

// buildBoundsQuery renders MIN/MAX(date) for a level table.
func buildBoundsQuery(d dialect, store string, level models.Level) (*builder, error) {
	table, err := MetricTable(level)
	if err != nil {
		return nil, err
	}
	b := newBuilder(d)
	if d == dialectPostgres {
		b.write("SELECT to_char(MIN(date), 'YYYY-MM-DD'), to_char(MAX(date), 'YYYY-MM-DD') FROM " + table)
	} else {
		b.write("SELECT if(count() = 0, NULL, toString(min(date))), if(count() = 0, NULL, toString(max(date))) FROM " + table)
	}
	b.storeClause(store, false)
	return b, nil
}

// buildObjectsQuery renders the ListObjects statement for a dialect.
func buildObjectsQuery(d dialect, q ObjectQuery) *builder {
	b := newBuilder(d)
	if d == dialectPostgres {
		b.write(`SELECT store, object_type, object_id, COALESCE(object_name, ''),
			COALESCE(parent_id, ''), COALESCE(parent_name, ''),
			COALESCE(grandparent_id, ''), COALESCE(grandparent_name, ''),
			COALESCE(status, ''), COALESCE(effective_status, ''),
			COALESCE(daily_budget, 0)::float8, COALESCE(lifetime_budget, 0)::float8,
			COALESCE(objective, ''), COALESCE(optimization_goal, ''), COALESCE(bid_strategy, ''),
			created_time, start_time, stop_time, last_synced_at
		FROM meta_objects`)
	} else {
		b.write(`SELECT store, object_type, object_id, ifNull(object_name, ''),
			ifNull(parent_id, ''), ifNull(parent_name, ''),
			ifNull(grandparent_id, ''), ifNull(grandparent_name, ''),
			ifNull(status, ''), ifNull(effective_status, ''),
			toFloat64(ifNull(daily_budget, 0)), toFloat64(ifNull(lifetime_budget, 0)),
			ifNull(objective, ''), ifNull(optimization_goal, ''), ifNull(bid_strategy, ''),
			created_time, start_time, stop_time, last_synced_at
		FROM meta_objects`)
	}
	b.storeClause(q.Store, q.CaseInsensitiveStore)
	b.statusClause("effective_status", q.Status)
	types := make([]string, len(q.Types))
	for i, t := range q.Types {
		types[i] = string(t)
	}
	b.inClause("object_type", types)
	if q.ObjectID != "" {
		b.write(" AND object_id = " + b.bind(q.ObjectID))
	}
	b.write(" ORDER BY object_type, object_name")
	return b
}

// objectTargets returns Scan destinations in buildObjectsQuery column
// order. object_type lands in objType so drivers only see plain strings.
func objectTargets(o *models.ObjectNode, objType *string) []any {
	return []any{
		&o.Store, objType, &o.ObjectID, &o.ObjectName,
		&o.ParentID, &o.ParentName, &o.GrandparentID, &o.GrandparentName,
		&o.Status, &o.EffectiveStatus, &o.DailyBudget, &o.LifetimeBudget,
		&o.Objective, &o.OptimizationGoal, &o.BidStrategy,
		&o.CreatedTime, &o.StartTime, &o.StopTime, &o.LastSyncedAt,
	}
}
