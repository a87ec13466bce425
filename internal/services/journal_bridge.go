package services

import (
	"context"
	"encoding/json"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/internal/infrastructure/journal"
	"github.com/mandrin-rain/broker-bridge/usecase"
)

// JournalBridge adapts the journal processor to the use-case port.
type JournalBridge struct {
	processor *JournalProcessor
}

func NewJournalBridge(processor *JournalProcessor) *JournalBridge {
	return &JournalBridge{processor: processor}
}

func (b *JournalBridge) JournalOrder(ctx context.Context, order *domain.TradeOrder) error {
	if b.processor == nil || order == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return b.processor.Enqueue(journal.Item{
		Entity: journal.EntityOrder,
		Data:   payload,
	})
}

func (b *JournalBridge) JournalSubscription(ctx context.Context, sub *domain.Subscription) error {
	if b.processor == nil || sub == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return b.processor.Enqueue(journal.Item{
		Entity: journal.EntitySubscription,
		Data:   payload,
	})
}

var _ usecase.OperationJournal = (*JournalBridge)(nil)
