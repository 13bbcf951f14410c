package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"validationlake/internal/model"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("validation record not found")

const (
	DefaultPageSize  = 100
	createBatchChunk = 100
)

type RecordRepository struct {
	db  *gorm.DB
	now func() time.Time
	loc *time.Location
}

// NewRecordRepository counts calendar days, months and years in UTC until
// WithLocation says otherwise.
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db, now: time.Now, loc: time.UTC}
}

// WithLocation returns a copy that buckets days and scopes the KPI calendar in loc.
func (r *RecordRepository) WithLocation(loc *time.Location) *RecordRepository {
	if loc == nil {
		loc = time.UTC
	}
	cp := *r
	cp.loc = loc
	return &cp
}

func (r *RecordRepository) Location() *time.Location {
	return r.loc
}

// WithClock returns a copy whose KPI "current year/month" comes from now.
func (r *RecordRepository) WithClock(now func() time.Time) *RecordRepository {
	cp := *r
	cp.now = now
	return &cp
}

// DB exposes the handle so services can open transactions spanning several repositories.
func (r *RecordRepository) DB() *gorm.DB {
	return r.db
}

func (r *RecordRepository) Create(ctx context.Context, tx *gorm.DB, rec *model.ValidationRecord) error {
	if tx == nil {
		tx = r.db
	}
	storeUTC(rec)
	return tx.WithContext(ctx).Create(rec).Error
}

// storeUTC keeps explicit timestamps in the zone the store writes NowFunc in.
func storeUTC(rec *model.ValidationRecord) {
	if !rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.CreatedAt.UTC()
	}
}

// CreateBatch inserts records in chunks of 100 rows per statement.
func (r *RecordRepository) CreateBatch(ctx context.Context, recs []*model.ValidationRecord) error {
	if len(recs) == 0 {
		return nil
	}
	for _, rec := range recs {
		storeUTC(rec)
	}
	return r.db.WithContext(ctx).CreateInBatches(recs, createBatchChunk).Error
}

func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*model.ValidationRecord, error) {
	var rec model.ValidationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// List returns records in insertion (id) order. Callers clamp skip and limit.
func (r *RecordRepository) List(ctx context.Context, skip, limit int) ([]*model.ValidationRecord, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	records := make([]*model.ValidationRecord, 0)
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ============================================================================
// Dashboard table
// ============================================================================

func (r *RecordRepository) filtered(ctx context.Context, f RecordFilter) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.ValidationRecord{}).
		Scopes(f.windowScope(), f.searchScope())
}

// Count returns how many rows match the filter including search. No ordering
// is applied so the result does not depend on the chosen sort.
func (r *RecordRepository) Count(ctx context.Context, f RecordFilter) (int64, error) {
	var total int64
	err := r.filtered(ctx, f).Count(&total).Error
	return total, err
}

// Page returns one page of the filtered, searched and sorted table. page < 1
// is read as 1 and pageSize <= 0 as DefaultPageSize. A page past the end is
// empty, not an error.
func (r *RecordRepository) Page(ctx context.Context, f RecordFilter, s Sort, page, pageSize int) ([]*model.ValidationRecord, error) {
	page, pageSize = normalizePage(page, pageSize)
	records := make([]*model.ValidationRecord, 0)
	// an offset past math.MaxInt is past any table
	if page-1 > math.MaxInt/pageSize {
		return records, nil
	}
	err := r.filtered(ctx, f).
		Scopes(s.scope()).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	return records, err
}

// Find returns up to limit rows of the filtered, searched and sorted table.
// limit <= 0 means no limit.
func (r *RecordRepository) Find(ctx context.Context, f RecordFilter, s Sort, limit int) ([]*model.ValidationRecord, error) {
	records := make([]*model.ValidationRecord, 0)
	q := r.filtered(ctx, f).Scopes(s.scope())
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// TotalPages is ceil(total/pageSize), never less than 1.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if pages < 1 {
		return 1
	}
	return pages
}
