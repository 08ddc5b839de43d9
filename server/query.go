package server

import (
	"fmt"
	"strings"

	"github.com/spektr-org/shoplens/engine"
)

// filterRequest is the wire form of a FilterSpec plus report settings.
// It binds from query strings (GET /v1/analyze) and JSON bodies (sessions).
type filterRequest struct {
	DateFrom       string   `json:"date_from" form:"date_from"`
	DateTo         string   `json:"date_to" form:"date_to"`
	Category       string   `json:"category" form:"category"`
	Product        string   `json:"product" form:"product"`
	PaymentMethod  string   `json:"payment_method" form:"payment_method"`
	ShippingMethod string   `json:"shipping_method" form:"shipping_method"`
	PriceMin       *float64 `json:"price_min" form:"price_min"`
	PriceMax       *float64 `json:"price_max" form:"price_max"`
	Period         string   `json:"period" form:"period"`
	TopN           int      `json:"top_n" form:"top_n"`
	TopMetric      string   `json:"top_metric" form:"top_metric"`
	RequireData    bool     `json:"require_data" form:"require_data"`
}

// query is a resolved, validated filterRequest.
type query struct {
	Spec        engine.FilterSpec
	Period      engine.Period
	TopN        int
	TopMetric   engine.Metric
	RequireData bool
}

// badRequestError marks input that never reached the engine.
type badRequestError struct {
	Field string
	Err   error
}

func (e *badRequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *badRequestError) Unwrap() error { return e.Err }

// resolve turns the request into a query, filling unset settings from defaults.
// Range and field errors come back as the engine's typed errors.
func (r filterRequest) resolve(defaults query) (query, error) {
	q := defaults
	q.RequireData = r.RequireData

	var err error
	if r.DateFrom != "" {
		if q.Spec.DateFrom, err = engine.ParseDate(strings.TrimSpace(r.DateFrom)); err != nil {
			return q, &badRequestError{Field: "date_from", Err: fmt.Errorf("expected YYYY-MM-DD")}
		}
	}
	if r.DateTo != "" {
		if q.Spec.DateTo, err = engine.ParseDate(strings.TrimSpace(r.DateTo)); err != nil {
			return q, &badRequestError{Field: "date_to", Err: fmt.Errorf("expected YYYY-MM-DD")}
		}
	}
	q.Spec.Category = r.Category
	q.Spec.Product = r.Product
	q.Spec.PaymentMethod = r.PaymentMethod
	q.Spec.ShippingMethod = r.ShippingMethod
	q.Spec.PriceMin = r.PriceMin
	q.Spec.PriceMax = r.PriceMax

	if r.Period != "" {
		if q.Period, err = engine.ParsePeriod(r.Period); err != nil {
			return q, err
		}
	}
	if r.TopMetric != "" {
		if q.TopMetric, err = engine.ParseMetric(r.TopMetric); err != nil {
			return q, err
		}
	}
	if r.TopN < 0 {
		return q, &badRequestError{Field: "top_n", Err: fmt.Errorf("must be >= 0")}
	}
	if r.TopN > 0 {
		q.TopN = r.TopN
	}

	if err := q.Spec.Validate(); err != nil {
		return q, err
	}
	return q, nil
}

// filterResponse echoes a query back to the client.
func filterResponse(q query) map[string]any {
	out := map[string]any{
		"category":        q.Spec.Category,
		"product":         q.Spec.Product,
		"payment_method":  q.Spec.PaymentMethod,
		"shipping_method": q.Spec.ShippingMethod,
		"price_min":       q.Spec.PriceMin,
		"price_max":       q.Spec.PriceMax,
		"period":          q.Period,
		"top_n":           q.TopN,
		"top_metric":      q.TopMetric,
		"require_data":    q.RequireData,
	}
	out["date_from"] = formatDate(q.Spec.DateFrom.IsZero(), q.Spec.DateFrom.Format(engine.DateLayout))
	out["date_to"] = formatDate(q.Spec.DateTo.IsZero(), q.Spec.DateTo.Format(engine.DateLayout))
	return out
}

func formatDate(zero bool, s string) string {
	if zero {
		return ""
	}
	return s
}
