package domain

import "time"

// Subscription marks an instrument token the user wants live ticks for.
type Subscription struct {
	ID              int64     `json:"id"`
	InstrumentToken int64     `json:"instrument_token"`
	Tradingsymbol   string    `json:"tradingsymbol"`
	SubscribedAt    time.Time `json:"subscribed_at"`
}

// Tick is a single market-data update decoded from the Kite ticker stream.
type Tick struct {
	InstrumentToken int64     `json:"instrument_token"`
	LastPrice       float64   `json:"last_price"`
	ReceivedAt      time.Time `json:"received_at"`
}
