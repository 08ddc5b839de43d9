package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/shoplens/engine"
	"github.com/spektr-org/shoplens/helpers"
	"github.com/spektr-org/shoplens/schema"
)

var errSessionNotFound = errors.New("session not found")

// writeError maps an error onto a status code and a JSON body.
func (s *Server) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	body := gin.H{"error": err.Error()}

	var (
		rangeErr   *engine.RangeError
		fieldErr   *engine.FieldError
		recordErr  *engine.RecordError
		missingErr *schema.MissingColumnsError
		rowErr     *helpers.RowError
		badReq     *badRequestError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &rangeErr):
		body["kind"] = "invalid_range"
		body["field"] = rangeErr.Field
		body["lower"] = rangeErr.Lower
		body["upper"] = rangeErr.Upper
		return http.StatusBadRequest, body
	case errors.As(err, &fieldErr):
		body["kind"] = "unknown_field"
		body["field"] = fieldErr.Field
		body["allowed"] = fieldErr.Allowed
		return http.StatusBadRequest, body
	case errors.Is(err, engine.ErrEmptyInput):
		body["kind"] = "empty_input"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &tooLarge):
		body["kind"] = "too_large"
		body["limit"] = tooLarge.Limit
		return http.StatusRequestEntityTooLarge, body
	case errors.As(err, &missingErr):
		body["kind"] = "missing_columns"
		body["missing"] = missingErr.Missing
		return http.StatusBadRequest, body
	case errors.As(err, &rowErr):
		body["kind"] = "malformed_row"
		body["line"] = rowErr.Line
		body["column"] = rowErr.Column
		return http.StatusBadRequest, body
	case errors.As(err, &recordErr):
		body["kind"] = "invalid_record"
		body["order_id"] = recordErr.OrderID
		body["reason"] = recordErr.Reason
		return http.StatusBadRequest, body
	case errors.As(err, &badReq):
		body["kind"] = "bad_request"
		body["field"] = badReq.Field
		return http.StatusBadRequest, body
	case errors.Is(err, errSessionNotFound):
		body["kind"] = "not_found"
		return http.StatusNotFound, body
	}
	body["kind"] = "internal"
	return http.StatusInternalServerError, body
}
