package domain

// ServiceFeePercent is the surcharge applied to the nightly subtotal.
const ServiceFeePercent = 12

type Quote struct {
	Nights        int   `json:"nights"`
	PricePerNight int64 `json:"pricePerNight"`
	Subtotal      int64 `json:"subtotal"`
	ServiceFee    int64 `json:"serviceFee"`
	Total         int64 `json:"total"`
}

// NewQuote computes subtotal = nights*price, fee = round(subtotal*0.12), total = subtotal+fee.
// Integer rounding keeps the fee exact; subtotal*12 never ends in exactly 50, so there are no ties.
func NewQuote(pricePerNight int64, nights int) Quote {
	subtotal := int64(nights) * pricePerNight
	fee := (subtotal*ServiceFeePercent + 50) / 100
	return Quote{
		Nights:        nights,
		PricePerNight: pricePerNight,
		Subtotal:      subtotal,
		ServiceFee:    fee,
		Total:         subtotal + fee,
	}
}
