package quotes

import (
	"time"

	"databridge/pkg/contracts/domain"
)

// Terminal field names consumed by the resolver.
const (
	FieldLast          = "PX_LAST"
	FieldMid           = "PX_MID"
	FieldOfficialClose = "PX_OFFICIAL_CLOSE"
	FieldBid           = "PX_BID"
	FieldAsk           = "PX_ASK"
	FieldPrevClose     = "PREV_CLOSE_VAL"
	FieldVolume        = "VOLUME"
	FieldOpen          = "PX_OPEN"
	FieldHigh          = "PX_HIGH"
	FieldLow           = "PX_LOW"
	FieldChangePct     = "CHG_PCT_1D"
	FieldChangeNet     = "CHG_NET_1D"
	FieldCurrency      = "CRNCY"
	FieldName          = "NAME"
	FieldExchange      = "ID_EXCH_SYMBOL"
)

// PriceFields is the reference-field set the session resolver needs.
var PriceFields = []string{FieldLast, FieldMid, FieldOfficialClose}

// QuoteFields is the full reference-field set for the sparse quote surface.
var QuoteFields = []string{
	FieldLast, FieldBid, FieldAsk, FieldPrevClose, FieldVolume,
	FieldOpen, FieldHigh, FieldLow, FieldChangePct, FieldChangeNet,
	FieldCurrency, FieldName, FieldExchange,
}

// ResolvePrice picks the "current price" for one ticker's reference row.
// During the market session the mid price is preferred; outside it the
// official close; the last trade is the fallback in both modes. ok is false
// when the row carries a per-ticker error or no usable field, in which case
// the ticker is omitted from output rather than reported as zero.
func ResolvePrice(fields domain.FieldRow, now time.Time) (float64, bool) {
	if fields.HasError() {
		return 0, false
	}
	preferred := FieldOfficialClose
	if InSession(now) {
		preferred = FieldMid
	}
	if f, ok := fields.Get(preferred).Float(); ok {
		return f, true
	}
	return fields.Get(FieldLast).Float()
}

// BuildQuote maps a reference row onto the sparse quote record. The resolved
// session price becomes last_price; a row with no resolvable price yields
// ok=false and no quote.
func BuildQuote(symbol string, fields domain.FieldRow, now time.Time) (domain.Quote, bool) {
	if fields.HasError() {
		return domain.Quote{}, false
	}
	q := domain.Quote{
		Symbol:        symbol,
		Bid:           fields.Get(FieldBid).FloatPtr(),
		Ask:           fields.Get(FieldAsk).FloatPtr(),
		ClosePrice:    fields.Get(FieldPrevClose).FloatPtr(),
		Volume:        fields.Get(FieldVolume).FloatPtr(),
		OpenPrice:     fields.Get(FieldOpen).FloatPtr(),
		HighPrice:     fields.Get(FieldHigh).FloatPtr(),
		LowPrice:      fields.Get(FieldLow).FloatPtr(),
		ChangePercent: fields.Get(FieldChangePct).FloatPtr(),
		ChangeAmount:  fields.Get(FieldChangeNet).FloatPtr(),
		Currency:      fields.Get(FieldCurrency).TextOr(""),
		Name:          fields.Get(FieldName).TextOr(""),
		Exchange:      fields.Get(FieldExchange).TextOr(""),
	}
	if last, ok := fields.Get(FieldLast).Float(); ok {
		q.LastPrice = &last
	} else if bid := q.Bid; bid != nil {
		q.LastPrice = bid
	}
	if q.LastPrice == nil {
		return domain.Quote{}, false
	}
	return q, true
}
