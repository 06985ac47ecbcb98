// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the referenced row does not exist.
// Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrReservationLimit is returned when a non-admin already holds the
// maximum number of reservations.
var ErrReservationLimit = errors.New("reservation limit reached")

// ErrNotPending is returned when a reservation or appeal is no longer
// pending and therefore immutable.
var ErrNotPending = errors.New("not pending")

// ErrAlreadyBanned is returned when issuing a ban to a user who already
// has an active one.
var ErrAlreadyBanned = errors.New("user is already banned")

// ErrAlreadyResolved is returned when mutating a resolved or expired ban.
var ErrAlreadyResolved = errors.New("ban issue already resolved")

// ErrAppealExists is returned when a ban issue already has an appeal.
var ErrAppealExists = errors.New("ban issue already appealed")

// isDuplicate reports whether err is a unique-key violation (MySQL 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isRegexpError reports whether MySQL rejected a REGEXP pattern at run
// time: ER_REGEXP_* (3685-3699) on MySQL 8, 1139 on older servers.
func isRegexpError(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == 1139 || (me.Number >= 3685 && me.Number <= 3699)
}
