package domain

import "time"

// Instrument is one row of the Kite instrument dump for an exchange.
// InstrumentToken is the primary key used for tick subscriptions.
type Instrument struct {
	InstrumentToken int64      `json:"instrument_token"`
	ExchangeToken   int64      `json:"exchange_token"`
	Tradingsymbol   string     `json:"tradingsymbol"`
	Name            string     `json:"name"`
	LastPrice       float64    `json:"last_price"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	Strike          float64    `json:"strike"`
	TickSize        float64    `json:"tick_size"`
	LotSize         int        `json:"lot_size"`
	InstrumentType  string     `json:"instrument_type"`
	Segment         string     `json:"segment"`
	Exchange        string     `json:"exchange"`
}

// NameToken is the trimmed projection served to instrument pickers.
type NameToken struct {
	InstrumentToken int64  `json:"instrumentToken"`
	Name            string `json:"name"`
}
