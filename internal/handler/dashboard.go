package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"validationlake/internal/repository"
	"validationlake/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// KPIs GET /api/v1/dashboard/kpis
func (h *Handler) KPIs(c *gin.Context) {
	q, err := h.dashboardQuery(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	kpi, err := h.dashboard.KPIs(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, kpi)
}

// DailyCounts GET /api/v1/dashboard/daily-counts
func (h *Handler) DailyCounts(c *gin.Context) {
	q, err := h.dashboardQuery(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	rows, err := h.dashboard.DailyCounts(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rows)
}

// Distribution GET /api/v1/dashboard/distribution?group_by=register|host_register
func (h *Handler) Distribution(c *gin.Context) {
	q, err := h.dashboardQuery(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	by, ok := repository.ParseGroupKey(c.Query("group_by"))
	if !ok {
		response.ParamError(c, fmt.Sprintf("group_by must be %q or %q", repository.GroupByRegister, repository.GroupByHostRegister))
		return
	}
	rows, err := h.dashboard.Distribution(c.Request.Context(), q, by)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, rows)
}

// Records GET /api/v1/dashboard/records
func (h *Handler) Records(c *gin.Context) {
	q, err := h.tableQuery(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	page, err := h.dashboard.Records(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

// ExportRecords GET /api/v1/dashboard/records/export
func (h *Handler) ExportRecords(c *gin.Context) {
	q, err := h.tableQuery(c)
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	var buf bytes.Buffer
	if _, err := h.dashboard.Export(c.Request.Context(), q, &buf); err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("registros_%s.xlsx", h.now().In(h.loc).Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
