package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/repository"
	"github.com/mandrin-rain/broker-bridge/usecase"
)

type UseCase struct {
	subs        repository.SubscriptionRepository
	instruments repository.InstrumentRepository
	journal     usecase.OperationJournal
	logger      *zap.Logger
}

func New(subs repository.SubscriptionRepository, instruments repository.InstrumentRepository, journal usecase.OperationJournal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		subs:        subs,
		instruments: instruments,
		journal:     journal,
		logger:      logger,
	}
}

// SaveAll records subscriptions for the given instrument tokens,
// skipping tokens that are already subscribed. Persistence failures
// are journaled; the live subscription already happened upstream.
func (uc *UseCase) SaveAll(ctx context.Context, tokens []int64) error {
	for _, token := range tokens {
		exists, err := uc.subs.Exists(ctx, token)
		if err == nil && exists {
			uc.logger.Debug("instrument already subscribed", zap.Int64("token", token))
			continue
		}

		sub := &domain.Subscription{
			InstrumentToken: token,
			SubscribedAt:    time.Now(),
		}
		if ins, err := uc.instruments.GetByToken(ctx, token); err == nil {
			sub.Tradingsymbol = ins.Tradingsymbol
		}

		if err := uc.subs.Save(ctx, sub); err != nil {
			uc.logger.Warn("subscription persistence failed, journaling",
				zap.Int64("token", token), zap.Error(err))
			if uc.journal != nil {
				if jErr := uc.journal.JournalSubscription(ctx, sub); jErr != nil {
					uc.logger.Error("subscription journaling failed", zap.Error(jErr))
				}
			}
			continue
		}
		uc.logger.Info("subscribed instrument", zap.Int64("token", token))
	}
	return nil
}

// ListTokens returns every subscribed instrument token.
func (uc *UseCase) ListTokens(ctx context.Context) ([]int64, error) {
	return uc.subs.ListTokens(ctx)
}
