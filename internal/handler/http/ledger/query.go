package ledger_http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ledger/internal/domain"
)

// Accepted from_date/to_date layouts. Values without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func parsePage(q url.Values) (domain.Page, error) {
	page := domain.Page{Limit: domain.DefaultPageLimit}
	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return page, fmt.Errorf("skip must be a non-negative integer")
		}
		page.Offset = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return page, fmt.Errorf("limit must be a positive integer")
		}
		page.Limit = limit
	}
	return page.Normalize(), nil
}

func parseTransactionFilter(q url.Values) (domain.TransactionFilter, error) {
	var filter domain.TransactionFilter
	if raw := q.Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("account_id must be an integer")
		}
		filter.AccountID = &id
	}
	var err error
	if filter.From, err = parseDate(q, "from_date"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate(q, "to_date"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDate(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be an ISO 8601 datetime", name)
}
