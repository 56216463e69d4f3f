package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

func TestConstraintViolationClassification(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{name: "pg unique", err: &pq.Error{Code: "23505"}, unique: true},
		{name: "pg fk wrapped", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23503"}), fk: true},
		{name: "pg check", err: &pq.Error{Code: "23514"}, check: true},
		{name: "mysql duplicate", err: &mysql.MySQLError{Number: 1062}, unique: true},
		{name: "mysql fk", err: &mysql.MySQLError{Number: 1452}, fk: true},
		{name: "mysql check wrapped", err: fmt.Errorf("update: %w", &mysql.MySQLError{Number: 3819}), check: true},
		{name: "plain", err: errors.New("connection refused")},
		{name: "nil", err: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err); got != tc.unique {
				t.Fatalf("IsUniqueViolation=%v want=%v", got, tc.unique)
			}
			if got := IsForeignKeyViolation(tc.err); got != tc.fk {
				t.Fatalf("IsForeignKeyViolation=%v want=%v", got, tc.fk)
			}
			if got := IsCheckViolation(tc.err); got != tc.check {
				t.Fatalf("IsCheckViolation=%v want=%v", got, tc.check)
			}
		})
	}
}

func TestIsNumericOutOfRange(t *testing.T) {
	if !IsNumericOutOfRange(fmt.Errorf("insert: %w", &pq.Error{Code: "22003"})) {
		t.Fatal("pg 22003 not classified as out of range")
	}
	if !IsNumericOutOfRange(&mysql.MySQLError{Number: 1264}) {
		t.Fatal("mysql 1264 not classified as out of range")
	}
	if IsNumericOutOfRange(&pq.Error{Code: "23514"}) {
		t.Fatal("check violation classified as out of range")
	}
}
