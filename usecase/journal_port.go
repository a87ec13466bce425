package usecase

import (
	"context"

	"github.com/mandrin-rain/broker-bridge/domain"
)

// OperationJournal abstracts the offline write journal so use cases
// stay storage-agnostic. Journaled rows are drained into Postgres once
// it is reachable again.
type OperationJournal interface {
	JournalOrder(ctx context.Context, order *domain.TradeOrder) error
	JournalSubscription(ctx context.Context, sub *domain.Subscription) error
}
