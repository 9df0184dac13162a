package exchange

import (
	"github.com/shopspring/decimal"
)

// SymbolPrecision is the per-symbol rounding rule §4.2 allows to be a
// static table: quantity step and price tick, both expressed as decimal
// places, matching the common USDⓈ-M futures convention.
type SymbolPrecision struct {
	QuantityDecimals int
	PriceDecimals    int
}

// defaultPrecisionTable is a static table covering the pairs exercised in
// the test scenarios; unknown symbols fall back to a conservative default.
var defaultPrecisionTable = map[string]SymbolPrecision{
	"BTCUSDT": {QuantityDecimals: 3, PriceDecimals: 1},
	"ETHUSDT": {QuantityDecimals: 3, PriceDecimals: 2},
	"SOLUSDT": {QuantityDecimals: 1, PriceDecimals: 3},
	"BNBUSDT": {QuantityDecimals: 2, PriceDecimals: 2},
}

var fallbackPrecision = SymbolPrecision{QuantityDecimals: 2, PriceDecimals: 4}

// PrecisionFor returns the rounding rule for a symbol, falling back to a
// conservative default for symbols absent from the static table.
func PrecisionFor(symbol string) SymbolPrecision {
	if p, ok := defaultPrecisionTable[symbol]; ok {
		return p
	}
	return fallbackPrecision
}

// RoundQuantity rounds a raw order quantity down to the symbol's quantity
// step using decimal arithmetic to avoid float round-trip artifacts.
func RoundQuantity(symbol string, qty float64) float64 {
	p := PrecisionFor(symbol)
	d := decimal.NewFromFloat(qty).Truncate(int32(p.QuantityDecimals))
	v, _ := d.Float64()
	return v
}

// RoundPrice rounds a raw price to the symbol's price tick.
func RoundPrice(symbol string, price float64) float64 {
	p := PrecisionFor(symbol)
	d := decimal.NewFromFloat(price).Round(int32(p.PriceDecimals))
	v, _ := d.Float64()
	return v
}
