// Package repository persists renters, sessions, listings, rental
// requests and customer submissions in MySQL.  The sentinel values below
// let the service layer distinguish failure scenarios with errors.Is
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by another renter.
var ErrForbidden = errors.New("forbidden")

// ErrInsufficientStock is returned when a reservation would push a
// listing's rented count above its stock.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when a unique key other than email collides,
// such as a customer id number or an idempotency key reused for another
// listing.
var ErrDuplicate = errors.New("duplicate entry")

// ErrStaleState is returned when a conditional update finds the row in a
// state that no longer permits it: a request that is no longer Pending,
// or a stock value below the units currently rented.
var ErrStaleState = errors.New("stale state")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// rollbackUnlessCommitted is deferred right after BeginTx.
func rollbackUnlessCommitted(tx interface{ Rollback() error }, committed *bool) {
	if !*committed {
		_ = tx.Rollback()
	}
}
