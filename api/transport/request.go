package transport

// OrderRequest is the payload for placing a regular order.
type OrderRequest struct {
	InstrumentToken int64    `json:"instrument_token"`
	Tradingsymbol   string   `json:"tradingsymbol"`
	Exchange        string   `json:"exchange"`
	TransactionType string   `json:"transaction_type"`
	Quantity        int      `json:"quantity"`
	Price           *float64 `json:"price,omitempty"`
}

// SubscribeRequest carries instrument tokens for tick subscription.
type SubscribeRequest struct {
	Tokens []int64 `json:"tokens"`
}
