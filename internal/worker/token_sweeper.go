// Package worker holds the background tasks running beside the HTTP server.
package worker

import (
	"context"
	"log"
	"time"
)

// ExpiredTokenStore deletes dead ephemeral tokens and reports how many went.
type ExpiredTokenStore interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartTokenSweeper deletes expired activation and password-reset tokens on
// a fixed interval until the context is cancelled. The sweep is idempotent
// and only removes rows no lookup would accept, so it runs safely alongside
// request traffic.
func StartTokenSweeper(ctx context.Context, store ExpiredTokenStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("token-sweeper: stopped")
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				log.Printf("token-sweeper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token-sweeper: removed %d expired tokens", n)
			}
		}
	}
}
