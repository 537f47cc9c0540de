// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/keygate/internal/platform/apperr"
)

// UniqueViolation returns the violated constraint name when err is a
// PostgreSQL unique violation (SQLSTATE 23505).
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// IsNoRows reports whether err means the queried row does not exist.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Wrap classifies a database error into an [apperr.AppError].
//
// Missing rows become 404 for resource, unique violations become 409 with
// the message registered for the constraint (or a generic one), anything
// else is an internal error carrying the cause.
func Wrap(err error, resource string, conflicts map[string]string) error {
	if err == nil {
		return nil
	}

	if IsNoRows(err) {
		return apperr.NotFound(resource)
	}

	if constraint, ok := UniqueViolation(err); ok {
		message, known := conflicts[constraint]
		if !known {
			message = resource + " already exists"
		}
		return apperr.Conflict(message).WithCause(err)
	}

	return apperr.Internal(err)
}
