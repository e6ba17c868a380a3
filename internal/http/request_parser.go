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
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrBadRequestBody marks a body that is not the expected JSON document.
var ErrBadRequestBody = errors.New("malformed request body")

// decodeJSON reads a single JSON document from r into v. Field-level
// validation errors (bad amount or date) keep their core.ErrValidation
// identity; anything else is wrapped in ErrBadRequestBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequestBody)
		}
		return fmt.Errorf("%w: %v", ErrBadRequestBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrBadRequestBody)
	}
	return nil
}

// writeDecodeError answers a failed decodeJSON.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrValidation) {
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	BadRequestError(err.Error()).Write(w)
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using now
// as the default. Out of range values fall back to now's month.
func ParseMonthParams(query url.Values, now time.Time) MonthParams {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			params.Month = m
		}
	}

	return params
}

// ReferenceTime returns the instant used to evaluate the requested month:
// now itself for the current month, otherwise noon on the 1st in now's location.
func (p MonthParams) ReferenceTime(now time.Time) time.Time {
	if p.Year == now.Year() && p.Month == int(now.Month()) {
		return now
	}
	return time.Date(p.Year, time.Month(p.Month), 1, 12, 0, 0, 0, now.Location())
}

// parsePaymentMode reads the mode query parameter. Empty means all modes.
func parsePaymentMode(query url.Values) (core.PaymentMode, bool) {
	mode := core.PaymentMode(strings.ToLower(strings.TrimSpace(query.Get("mode"))))
	switch mode {
	case "", "all", core.Online, core.Cash:
		return mode, true
	default:
		return "", false
	}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
