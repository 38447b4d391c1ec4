package client

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/syncrpc"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Import(ctx context.Context, batch []syncrpc.TransactionInput) (*syncrpc.ImportResult, error)
	SetAccessToken(token string)
}
