// Package store is the hand-written pgx query layer. It implements the
// narrow store interfaces each service consumes; nothing above it ever
// sees SQL. Row-absence is reported as pgx.ErrNoRows and mapped to
// domain errors by the services.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
