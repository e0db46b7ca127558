package database

import (
	"context"

	"github.com/tieubaoca/pdfchat/types"
)

// SessionStore keeps conversation sessions between requests, keyed by
// session ID. Sessions expire after the store's idle TTL.
type SessionStore interface {
	Get(ctx context.Context, id string) (*types.Session, error)
	Save(ctx context.Context, session *types.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
