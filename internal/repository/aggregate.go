package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"validationlake/internal/model"
)

// KPISummary holds the dashboard headline counters. All four count successful
// records inside the filter window only. Manual and automatic counts are
// restricted to the current year like the yearly counter.
type KPISummary struct {
	YearlySuccessCount       int64 `gorm:"column:yearly_success_count" json:"yearly_success_count"`
	CurrentMonthSuccessCount int64 `gorm:"column:current_month_success_count" json:"current_month_success_count"`
	ManualValidationCount    int64 `gorm:"column:manual_validation_count" json:"manual_validation_count"`
	AutomaticValidationCount int64 `gorm:"column:automatic_validation_count" json:"automatic_validation_count"`
}

// KPISummary computes the counters in a single pass. Search is never applied.
// The current year and month are calendar periods in the repository location,
// compared as half-open instant ranges so every store agrees on them.
func (r *RecordRepository) KPISummary(ctx context.Context, f RecordFilter) (*KPISummary, error) {
	now := r.now().In(r.loc)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, r.loc)
	yearEnd := yearStart.AddDate(1, 0, 0)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	const inRange = "created_at >= ? AND created_at < ?"
	sel := strings.Join([]string{
		"COALESCE(SUM(CASE WHEN " + inRange + " THEN 1 ELSE 0 END), 0) AS yearly_success_count",
		"COALESCE(SUM(CASE WHEN " + inRange + " THEN 1 ELSE 0 END), 0) AS current_month_success_count",
		"COALESCE(SUM(CASE WHEN " + inRange + " AND operation_type = ? THEN 1 ELSE 0 END), 0) AS manual_validation_count",
		"COALESCE(SUM(CASE WHEN " + inRange + " AND operation_type = ? THEN 1 ELSE 0 END), 0) AS automatic_validation_count",
	}, ", ")

	ys, ye := yearStart.UTC(), yearEnd.UTC()
	var out KPISummary
	err := r.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Scopes(f.windowScope()).
		Where("success = ?", true).
		Select(sel,
			ys, ye,
			monthStart.UTC(), monthEnd.UTC(),
			ys, ye, string(model.OperationManualValidation),
			ys, ye, string(model.OperationAutomaticValidation),
		).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("kpi summary: %w", err)
	}
	return &out, nil
}

// DailyCount is one bar of the daily chart.
type DailyCount struct {
	Date     string `json:"date"`
	Status   string `json:"status"`
	Quantity int64  `json:"quantity"`
}

// DailyCounts returns one row per (calendar day, success) present in the
// window, ascending by day and failures before successes. Days are counted in
// the repository location and days without rows are absent.
func (r *RecordRepository) DailyCounts(ctx context.Context, f RecordFilter) ([]DailyCount, error) {
	d := dialectOf(r.db)
	if d == dialectSQLite {
		return r.dailyCountsInZone(ctx, f)
	}
	day := d.date("created_at")

	rows, err := r.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Scopes(f.windowScope()).
		Select(day + " AS day, success, COUNT(id) AS quantity").
		Group(day).
		Group("success").
		Order(day + " ASC").
		Order("success ASC").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	out := make([]DailyCount, 0)
	for rows.Next() {
		var (
			raw      any
			success  bool
			quantity int64
		)
		if err := rows.Scan(&raw, &success, &quantity); err != nil {
			return nil, fmt.Errorf("daily counts: scan: %w", err)
		}
		date, err := dayString(raw)
		if err != nil {
			return nil, fmt.Errorf("daily counts: %w", err)
		}
		out = append(out, DailyCount{Date: date, Status: model.StatusLabel(success), Quantity: quantity})
	}
	return out, rows.Err()
}

// dailyCountsInZone buckets in Go. SQLite holds UTC text and its date
// functions know no other zone than UTC.
func (r *RecordRepository) dailyCountsInZone(ctx context.Context, f RecordFilter) ([]DailyCount, error) {
	rows, err := r.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Scopes(f.windowScope()).
		Select("created_at, success").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		day     string
		success bool
	}
	counts := make(map[bucket]int64)
	for rows.Next() {
		var (
			raw     any
			success bool
		)
		if err := rows.Scan(&raw, &success); err != nil {
			return nil, fmt.Errorf("daily counts: scan: %w", err)
		}
		ts, err := timeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("daily counts: %w", err)
		}
		counts[bucket{day: ts.In(r.loc).Format(time.DateOnly), success: success}]++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}

	keys := make([]bucket, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day < keys[j].day
		}
		return !keys[i].success && keys[j].success
	})

	out := make([]DailyCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, DailyCount{Date: k.day, Status: model.StatusLabel(k.success), Quantity: counts[k]})
	}
	return out, nil
}

// storedTimeLayouts are the text forms SQLite drivers write timestamps in.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeValue reads a scanned timestamp. Text without an offset is UTC.
func timeValue(v any) (time.Time, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp value %T", v)
	}
	for _, layout := range storedTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unexpected timestamp value %q", s)
}

// dayString normalises what drivers return for DATE(...) to YYYY-MM-DD.
func dayString(v any) (string, error) {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly), nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return "", fmt.Errorf("unexpected day value %T", v)
	}
	if len(s) < len(time.DateOnly) {
		return "", fmt.Errorf("unexpected day value %q", s)
	}
	s = s[:len(time.DateOnly)]
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return "", err
	}
	return s, nil
}

// GroupKey selects the columns a distribution is grouped by.
type GroupKey int

const (
	GroupByRegister GroupKey = iota
	GroupByHostRegister
)

// ParseGroupKey accepts "register" and "host_register". Blank means register.
func ParseGroupKey(s string) (GroupKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "register":
		return GroupByRegister, true
	case "host_register":
		return GroupByHostRegister, true
	}
	return GroupByRegister, false
}

func (k GroupKey) String() string {
	if k == GroupByHostRegister {
		return "host_register"
	}
	return "register"
}

// DistributionRow is one group of the distribution chart. Hostname is only
// populated when grouping by host and register.
type DistributionRow struct {
	Hostname   *string `json:"hostname,omitempty"`
	NumCaixa   *int    `json:"num_caixa"`
	RowCount   int64   `json:"row_count"`
	TotalValue float64 `json:"total_value"`
}

// Distribution groups the window by key with a row count and the sum of
// vl_total per group, ordered by the key columns. NULL keys form their own group.
func (r *RecordRepository) Distribution(ctx context.Context, f RecordFilter, key GroupKey) ([]DistributionRow, error) {
	q := r.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Scopes(f.windowScope())

	const metrics = "COUNT(id) AS row_count, COALESCE(SUM(vl_total), 0) AS total_value"
	switch key {
	case GroupByHostRegister:
		q = q.Select("hostname, num_caixa, " + metrics).
			Group("hostname").Group("num_caixa").
			Order("hostname ASC").Order("num_caixa ASC")
	default:
		q = q.Select("num_caixa, " + metrics).
			Group("num_caixa").
			Order("num_caixa ASC")
	}

	rows, err := q.Rows()
	if err != nil {
		return nil, fmt.Errorf("distribution by %s: %w", key, err)
	}
	defer rows.Close()

	out := make([]DistributionRow, 0)
	for rows.Next() {
		var (
			host  sql.NullString
			caixa sql.NullInt64
			row   DistributionRow
		)
		if key == GroupByHostRegister {
			err = rows.Scan(&host, &caixa, &row.RowCount, &row.TotalValue)
		} else {
			err = rows.Scan(&caixa, &row.RowCount, &row.TotalValue)
		}
		if err != nil {
			return nil, fmt.Errorf("distribution by %s: scan: %w", key, err)
		}
		if host.Valid {
			h := host.String
			row.Hostname = &h
		}
		if caixa.Valid {
			c := int(caixa.Int64)
			row.NumCaixa = &c
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
