// Package http exposes the ingestion, budget, summary and chat services as a
// JSON API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const maxJSONBody = 1 << 20

var errBody = errors.New("malformed JSON body")

// decodeJSON reads one JSON object into dst. An empty body leaves dst unchanged.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &services.ValidationError{Field: "body", Err: fmt.Errorf("%w: %v", errBody, err)}
	}
	return nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads month and year from query, defaulting each to the
// month of now. Values that are present but not integers are errors; range
// checks are left to the services.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, &services.ValidationError{Field: "year", Err: core.ErrInvalidYear}
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, &services.ValidationError{Field: "month", Err: core.ErrInvalidMonth}
		}
		params.Month = m
	}

	return params, nil
}

// withDefaultPeriod fills a zero month or year from now.
func withDefaultPeriod(month, year int, now time.Time) (int, int) {
	if month == 0 || year == 0 {
		return int(now.Month()), now.Year()
	}
	return month, year
}

// ParseTransactionFilter reads startDate, endDate and category.
func ParseTransactionFilter(query url.Values) (storage.TransactionFilter, error) {
	var filter storage.TransactionFilter

	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return filter, &services.ValidationError{Field: "startDate", Err: err}
		}
		filter.From = d
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return filter, &services.ValidationError{Field: "endDate", Err: err}
		}
		filter.To = d
	}
	if v := strings.TrimSpace(query.Get("category")); v != "" {
		c, err := core.ParseCategory(v)
		if err != nil {
			return filter, &services.ValidationError{Field: "category", Err: err}
		}
		filter.Category = c
	}
	return filter, nil
}
