package subscriber

import (
	"context"

	"github.com/xraph/tally/id"
)

type Store interface {
	Get(ctx context.Context, sid id.SubscriberID) (*Subscriber, error)
}
