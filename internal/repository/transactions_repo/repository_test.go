package transactions_repo

import (
	"fmt"
	"testing"
	"time"

	"ledger/internal/domain"
)

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func TestFilterClause(t *testing.T) {
	accountID := int64(4)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))

	cases := []struct {
		name     string
		filter   domain.TransactionFilter
		wantSQL  string
		wantArgs int
	}{
		{name: "none", filter: domain.TransactionFilter{}, wantSQL: "", wantArgs: 0},
		{name: "account", filter: domain.TransactionFilter{AccountID: &accountID}, wantSQL: " WHERE account_id = $1", wantArgs: 1},
		{
			name:     "all",
			filter:   domain.TransactionFilter{AccountID: &accountID, From: &from, To: &to},
			wantSQL:  ` WHERE account_id = $1 AND "timestamp" >= $2 AND "timestamp" <= $3`,
			wantArgs: 3,
		},
		{name: "to only", filter: domain.TransactionFilter{To: &to}, wantSQL: ` WHERE "timestamp" <= $1`, wantArgs: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotSQL, gotArgs := FilterClause(tc.filter, `"timestamp"`, dollar)
			if gotSQL != tc.wantSQL {
				t.Fatalf("sql=%q want=%q", gotSQL, tc.wantSQL)
			}
			if len(gotArgs) != tc.wantArgs {
				t.Fatalf("args=%v want %d", gotArgs, tc.wantArgs)
			}
		})
	}
}

func TestFilterClauseNormalizesBoundsToUTC(t *testing.T) {
	to := time.Date(2024, 2, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600))
	_, args := FilterClause(domain.TransactionFilter{To: &to}, "`timestamp`", func(int) string { return "?" })
	got := args[0].(time.Time)
	if got.Location() != time.UTC || !got.Equal(to) {
		t.Fatalf("bound=%v want %v in UTC", got, to)
	}
}
