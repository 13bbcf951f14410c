package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"validationlake/internal/model"
	"validationlake/internal/repository"
	"validationlake/internal/service"

	"github.com/gin-gonic/gin"
)

const MaxPageSize = 1000

var errStartAfterEnd = errors.New("start_date must not be after end_date")

// parseBound reads YYYY-MM-DD or RFC3339. A date-only end bound covers the
// whole day.
func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, raw, loc); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

// parseOperationTypes accepts repeated and comma separated values. Absent means
// every type; present but empty or unknown means none.
func parseOperationTypes(c *gin.Context) model.OperationTypeSet {
	values, ok := c.GetQueryArray("operation_types")
	if !ok {
		return model.NewOperationTypeSet(model.AllOperationTypes...)
	}
	var types []model.OperationType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			types = append(types, model.OperationType(part))
		}
	}
	return model.NewOperationTypeSet(types...)
}

// dashboardQuery defaults to January 1st of the current year through the end
// of today.
func (h *Handler) dashboardQuery(c *gin.Context) (service.DashboardQuery, error) {
	now := h.now().In(h.loc)
	q := service.DashboardQuery{
		Start:          time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, h.loc),
		End:            time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc).Add(24*time.Hour - time.Nanosecond),
		OperationTypes: parseOperationTypes(c),
	}

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseBound(raw, h.loc, false)
		if err != nil {
			return q, fmt.Errorf("start_date: %w", err)
		}
		q.Start = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseBound(raw, h.loc, true)
		if err != nil {
			return q, fmt.Errorf("end_date: %w", err)
		}
		q.End = t
	}
	if q.Start.After(q.End) {
		return q, errStartAfterEnd
	}
	return q, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func (h *Handler) tableQuery(c *gin.Context) (service.TableQuery, error) {
	base, err := h.dashboardQuery(c)
	if err != nil {
		return service.TableQuery{}, err
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return service.TableQuery{}, err
	}
	size, err := queryInt(c, "page_size", repository.DefaultPageSize)
	if err != nil {
		return service.TableQuery{}, err
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return service.TableQuery{
		DashboardQuery: base,
		Search:         c.Query("search"),
		Sort:           repository.ParseSort(c.Query("sort_by"), c.Query("sort_order")),
		Page:           page,
		PageSize:       size,
	}, nil
}
