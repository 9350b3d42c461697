package provider

import (
	"context"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

type Store interface {
	Get(ctx context.Context, pid id.ProviderID) (*Provider, error)
	GetByKeyHash(ctx context.Context, keyHash string) (*Provider, error)
	List(ctx context.Context, opts ListOpts) ([]*Provider, error)
	Count(ctx context.Context) (uint64, error)
}

type ListOpts struct {
	Owner      types.Address
	ActiveOnly bool
	Limit      int
	Offset     int
}
