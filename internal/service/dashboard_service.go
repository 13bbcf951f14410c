package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"validationlake/internal/infrastructure/cache"
	"validationlake/internal/infrastructure/logger"
	"validationlake/internal/model"
	"validationlake/internal/repository"

	"github.com/sirupsen/logrus"
)

// DefaultCacheTTL bounds how stale a dashboard panel may be.
const DefaultCacheTTL = 1200 * time.Second

// DashboardQuery is the filter every panel shares.
type DashboardQuery struct {
	Start          time.Time
	End            time.Time
	OperationTypes model.OperationTypeSet
}

func (q DashboardQuery) filter() repository.RecordFilter {
	return repository.RecordFilter{Start: q.Start, End: q.End, OperationTypes: q.OperationTypes}
}

// key is equal for equal filters whatever order the types were given in.
func (q DashboardQuery) key() string {
	return q.Start.UTC().Format(time.RFC3339Nano) + "|" + q.End.UTC().Format(time.RFC3339Nano) + "|" + q.OperationTypes.Key()
}

// TableQuery adds search, sort and paging for the record table.
type TableQuery struct {
	DashboardQuery
	Search   string
	Sort     repository.Sort
	Page     int
	PageSize int
}

type RecordPage struct {
	Items      []*model.ValidationRecord `json:"items"`
	Total      int64                     `json:"total"`
	Page       int                       `json:"page"`
	PageSize   int                       `json:"page_size"`
	TotalPages int                       `json:"total_pages"`
}

type DashboardService struct {
	records *repository.RecordRepository
	cache   cache.Cache
	ttl     time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
}

func NewDashboardService(records *repository.RecordRepository, c cache.Cache, ttl time.Duration, log logrus.FieldLogger) *DashboardService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DashboardService{
		records: records,
		cache:   c,
		ttl:     ttl,
		now:     time.Now,
		log:     logger.Component(log, "dashboard_service"),
	}
}

// cached serves key from the cache or computes and stores it. Cache failures
// are logged and never fail the request.
func cached[T any](ctx context.Context, s *DashboardService, key string, compute func() (T, error)) (T, error) {
	var out T
	if s.cache != nil {
		err := s.cache.Get(ctx, key, &out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).WithField("key", key).Warn("cache read failed")
		}
	}

	out, err := compute()
	if err != nil {
		return out, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
			s.log.WithError(err).WithField("key", key).Warn("cache write failed")
		}
	}
	return out, nil
}

// KPIs are keyed by the current month too, so a cached value never outlives
// the calendar period it counted.
func (s *DashboardService) KPIs(ctx context.Context, q DashboardQuery) (*repository.KPISummary, error) {
	key := "dashboard:kpis:" + s.now().In(s.records.Location()).Format("2006-01") + ":" + q.key()
	return cached(ctx, s, key, func() (*repository.KPISummary, error) {
		return s.records.KPISummary(ctx, q.filter())
	})
}

func (s *DashboardService) DailyCounts(ctx context.Context, q DashboardQuery) ([]repository.DailyCount, error) {
	return cached(ctx, s, "dashboard:daily:"+q.key(), func() ([]repository.DailyCount, error) {
		return s.records.DailyCounts(ctx, q.filter())
	})
}

func (s *DashboardService) Distribution(ctx context.Context, q DashboardQuery, by repository.GroupKey) ([]repository.DistributionRow, error) {
	return cached(ctx, s, "dashboard:distribution:"+by.String()+":"+q.key(), func() ([]repository.DistributionRow, error) {
		return s.records.Distribution(ctx, q.filter(), by)
	})
}

// Records returns one page of the table together with its totals.
func (s *DashboardService) Records(ctx context.Context, q TableQuery) (*RecordPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = repository.DefaultPageSize
	}
	f := q.filter()
	f.Search = q.Search

	// search is case-insensitive, so is the key
	key := fmt.Sprintf("dashboard:records:%s|%s|%s:%s|%d|%d",
		q.key(), strings.ToLower(f.SearchTerm()), q.Sort.Column, q.Sort.Order, q.Page, q.PageSize)

	return cached(ctx, s, key, func() (*RecordPage, error) {
		total, err := s.records.Count(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("count records: %w", err)
		}
		items, err := s.records.Page(ctx, f, q.Sort, q.Page, q.PageSize)
		if err != nil {
			return nil, fmt.Errorf("page records: %w", err)
		}
		return &RecordPage{
			Items:      items,
			Total:      total,
			Page:       q.Page,
			PageSize:   q.PageSize,
			TotalPages: repository.TotalPages(total, q.PageSize),
		}, nil
	})
}
