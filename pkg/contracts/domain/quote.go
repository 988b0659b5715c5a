package domain

// Quote is one symbol's point-in-time quote surface. Fields with no business
// value are nil and omitted from the JSON record entirely, so consumers never
// see a placeholder zero where the terminal had nothing.
type Quote struct {
	Symbol        string   `json:"symbol" validate:"required"`
	LastPrice     *float64 `json:"last_price,omitempty"`
	Bid           *float64 `json:"bid,omitempty"`
	Ask           *float64 `json:"ask,omitempty"`
	ClosePrice    *float64 `json:"close_price,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	OpenPrice     *float64 `json:"open_price,omitempty"`
	HighPrice     *float64 `json:"high_price,omitempty"`
	LowPrice      *float64 `json:"low_price,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	ChangeAmount  *float64 `json:"change_amount,omitempty"`
	Currency      string   `json:"currency,omitempty"`
	Name          string   `json:"name,omitempty"`
	Exchange      string   `json:"exchange,omitempty"`
}
