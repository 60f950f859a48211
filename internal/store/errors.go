// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Failure kinds reported by the catalog stores. Callers match them with
// errors.Is; every returned error wraps exactly one of them.
var (
	ErrNotFound        = errors.New("not found")
	ErrNotEmpty        = errors.New("category has children")
	ErrForbidden       = errors.New("operation not permitted")
	ErrCycleRejected   = errors.New("move would create a cycle")
	ErrNotSibling      = errors.New("target is not a sibling")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
	ErrBusy            = errors.New("tree is busy")
	ErrStorage         = errors.New("storage failure")
)

// Postgres SQLSTATE codes the stores react to.
const (
	codeLockNotAvailable    = "55P03"
	codeForeignKeyViolation = "23503"
	codeInvalidTextRepr     = "22P02"
	codeNumericOutOfRange   = "22003"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrNotEmpty, "not_empty"},
	{ErrForbidden, "forbidden"},
	{ErrCycleRejected, "cycle_rejected"},
	{ErrNotSibling, "not_sibling"},
	{ErrInvalidArgument, "invalid_argument"},
	{ErrInvalidState, "invalid_state"},
	{ErrBusy, "busy"},
	{ErrStorage, "storage_failure"},
}

// Code returns the stable identifier of the failure kind wrapped by err.
// Errors of unknown kind report "storage_failure".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "storage_failure"
}

// storageErr classifies a driver error. Lock timeouts become ErrBusy; the
// rest become ErrStorage with the cause kept in the chain.
func storageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable {
		return fmt.Errorf("%s: %w", op, ErrBusy)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
