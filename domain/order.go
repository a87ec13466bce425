package domain

import "time"

// Transaction and product types accepted by the order endpoint.
const (
	TransactionBuy  = "BUY"
	TransactionSell = "SELL"

	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"

	ProductMIS  = "MIS"
	ProductCNC  = "CNC"
	ProductNRML = "NRML"
)

// TradeOrder records an order placed through Kite Connect. OrderID is
// the broker-assigned identifier returned by the order API.
type TradeOrder struct {
	ID              int64     `json:"id"`
	InstrumentToken int64     `json:"instrument_token"`
	Tradingsymbol   string    `json:"tradingsymbol"`
	Exchange        string    `json:"exchange"`
	TransactionType string    `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	Price           *float64  `json:"price,omitempty"`
	OrderID         string    `json:"order_id"`
	PlacedAt        time.Time `json:"placed_at"`
}

// Validate checks the fields required before the order is forwarded upstream.
func (o *TradeOrder) Validate() error {
	if o == nil {
		return ErrInvalidPayload
	}
	if o.Tradingsymbol == "" || o.Exchange == "" || o.Quantity <= 0 {
		return ErrInvalidPayload
	}
	switch o.TransactionType {
	case TransactionBuy, TransactionSell:
	default:
		return NewError(ErrCodeInvalid, "transaction_type must be BUY or SELL")
	}
	return nil
}
