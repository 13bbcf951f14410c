package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(t *testing.T, write func(c *gin.Context)) (int, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestStatusesMirrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		write  func(c *gin.Context)
		status int
		code   int
	}{
		{"success", func(c *gin.Context) { Success(c, 1) }, http.StatusOK, CodeSuccess},
		{"created", func(c *gin.Context) { Created(c, 1) }, http.StatusCreated, CodeSuccess},
		{"param", func(c *gin.Context) { ParamError(c, "bad") }, http.StatusBadRequest, CodeParamError},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "no") }, http.StatusUnauthorized, CodeUnauthorized},
		{"not found", func(c *gin.Context) { NotFound(c, "gone") }, http.StatusNotFound, CodeNotFound},
		{"validation", func(c *gin.Context) { ValidationError(c, "invalid", []string{"x"}) }, http.StatusUnprocessableEntity, CodeValidationError},
		{"server", func(c *gin.Context) { ServerError(c, "boom") }, http.StatusInternalServerError, CodeServerError},
	}
	for _, tc := range cases {
		status, body := record(t, tc.write)
		assert.Equal(t, tc.status, status, tc.name)
		assert.Equal(t, tc.code, body.Code, tc.name)
	}
}

func TestValidationErrorCarriesDetails(t *testing.T) {
	_, body := record(t, func(c *gin.Context) {
		ValidationError(c, "invalid", map[string]string{"field": "ticket_code"})
	})
	assert.Equal(t, map[string]interface{}{"field": "ticket_code"}, body.Data)
}
