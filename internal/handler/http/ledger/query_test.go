package ledger_http

import (
	"net/url"
	"testing"
	"time"

	"ledger/internal/domain"
)

func TestParsePageDefaults(t *testing.T) {
	page, err := parsePage(url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Offset != 0 || page.Limit != domain.DefaultPageLimit {
		t.Fatalf("page=%+v", page)
	}

	page, err = parsePage(url.Values{"skip": {"5"}, "limit": {"5000"}})
	if err != nil {
		t.Fatal(err)
	}
	if page.Offset != 5 || page.Limit != domain.MaxPageLimit {
		t.Fatalf("page=%+v", page)
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	cases := map[string]time.Time{
		"2024-03-04T05:06:07Z":      want,
		"2024-03-04T07:06:07+02:00": want,
		"2024-03-04T05:06:07":       want,
		"2024-03-04 05:06:07":       want,
		"2024-03-04":                time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}
	for raw, expected := range cases {
		got, err := parseDate(url.Values{"d": {raw}}, "d")
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !got.Equal(expected) || got.Location() != time.UTC {
			t.Fatalf("%s: got %v want %v", raw, got, expected)
		}
	}

	if got, err := parseDate(url.Values{}, "d"); got != nil || err != nil {
		t.Fatalf("absent date: got %v err %v", got, err)
	}
}

func TestParseTransactionFilter(t *testing.T) {
	filter, err := parseTransactionFilter(url.Values{"account_id": {"3"}, "to_date": {"2024-01-01"}})
	if err != nil {
		t.Fatal(err)
	}
	if filter.AccountID == nil || *filter.AccountID != 3 || filter.From != nil || filter.To == nil {
		t.Fatalf("filter=%+v", filter)
	}
	if _, err := parseTransactionFilter(url.Values{"account_id": {"x"}}); err == nil {
		t.Fatal("expected error for non-numeric account_id")
	}
}
