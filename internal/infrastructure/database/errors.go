package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNumericOutOfRange   = "22003"

	mysqlDuplicateEntry        = 1062
	mysqlNoReferencedRow       = 1452
	mysqlCheckConstraintFailed = 3819
	mysqlOutOfRangeValue       = 1264
)

func IsUniqueViolation(err error) bool {
	return hasPgCode(err, pgUniqueViolation) || hasMySQLNumber(err, mysqlDuplicateEntry)
}

func IsForeignKeyViolation(err error) bool {
	return hasPgCode(err, pgForeignKeyViolation) || hasMySQLNumber(err, mysqlNoReferencedRow)
}

func IsCheckViolation(err error) bool {
	return hasPgCode(err, pgCheckViolation) || hasMySQLNumber(err, mysqlCheckConstraintFailed)
}

func IsNumericOutOfRange(err error) bool {
	return hasPgCode(err, pgNumericOutOfRange) || hasMySQLNumber(err, mysqlOutOfRangeValue)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && string(pgErr.Code) == code
}

func hasMySQLNumber(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
