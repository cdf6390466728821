package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	lockPollInitial = 50 * time.Millisecond
	lockPollMax     = time.Second
)

// AdvisoryLocker serializes document ingestion across server instances with
// session-level Postgres advisory locks. A held lock pins one pool connection;
// waiters poll with pg_try_advisory_lock and hold no connection between tries.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

func (l *AdvisoryLocker) Lock(ctx context.Context, documentID string) (func(), error) {
	wait := lockPollInitial
	for {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection: %w", err)
		}

		var acquired bool
		err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtextextended($1, 0))`, documentID).Scan(&acquired)
		if err != nil {
			conn.Release()
			return nil, fmt.Errorf("advisory lock: %w", err)
		}

		if acquired {
			return func() {
				if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, documentID); err != nil {
					log.Printf("WARN: advisory unlock for document %s failed, closing connection: %v", documentID, err)
					_ = conn.Conn().Close(context.WithoutCancel(ctx))
				}
				conn.Release()
			}, nil
		}
		conn.Release()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait = min(wait*2, lockPollMax)
	}
}
