package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mandrin-rain/broker-bridge/domain"
	"github.com/mandrin-rain/broker-bridge/repository"
	"github.com/mandrin-rain/broker-bridge/usecase"
)

// OrderPlacer is the Kite surface needed to submit orders.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, accessToken string, order *domain.TradeOrder) (string, error)
}

type UseCase struct {
	broker  OrderPlacer
	orders  repository.OrderRepository
	journal usecase.OperationJournal
	logger  *zap.Logger
}

func New(broker OrderPlacer, orders repository.OrderRepository, journal usecase.OperationJournal, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		broker:  broker,
		orders:  orders,
		journal: journal,
		logger:  logger,
	}
}

// Place submits the order through Kite and records it. The upstream
// placement is the source of truth: if the local write fails the row
// is journaled instead of failing the request.
func (uc *UseCase) Place(ctx context.Context, sess *domain.BrokerSession, order *domain.TradeOrder) (*domain.TradeOrder, error) {
	if !sess.HasToken() {
		return nil, domain.ErrNotAuthenticated
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	uc.logger.Info("placing order",
		zap.String("tradingsymbol", order.Tradingsymbol),
		zap.Int("quantity", order.Quantity))

	orderID, err := uc.broker.PlaceOrder(ctx, sess.AccessToken, order)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeUpstream, "order placement failed", err)
	}
	order.OrderID = orderID
	order.PlacedAt = time.Now()

	saved, err := uc.orders.Save(ctx, order)
	if err != nil {
		uc.logger.Warn("order persistence failed, journaling", zap.Error(err))
		if uc.journal != nil {
			if jErr := uc.journal.JournalOrder(ctx, order); jErr != nil {
				uc.logger.Error("order journaling failed", zap.Error(jErr))
			}
		}
		return order, nil
	}

	uc.logger.Info("order saved",
		zap.Int64("id", saved.ID),
		zap.String("order_id", saved.OrderID))
	return saved, nil
}

// List returns all locally recorded orders, newest first.
func (uc *UseCase) List(ctx context.Context) ([]domain.TradeOrder, error) {
	return uc.orders.List(ctx)
}
