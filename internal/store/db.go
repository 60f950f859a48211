// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store implements the Postgres-backed catalog: the nested-set
// category tree, the book records linked to it and the subtree query that
// joins the two.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier runs statements. *pgxpool.Pool and pgx.Tx both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a connection pool that can open transactions.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// snapshotTx is used for reads that issue more than one statement, so they
// never observe a renumbering committed halfway through.
var snapshotTx = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// readTx runs fn inside a read-only snapshot transaction.
func readTx(ctx context.Context, db DB, fn func(q Querier) error) error {
	tx, err := db.BeginTx(ctx, snapshotTx)
	if err != nil {
		return storageErr("begin read", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit read", err)
	}
	return nil
}
