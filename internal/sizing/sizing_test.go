package sizing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/sizing"
)

func TestSmartSizePercent_ClampsToBounds(t *testing.T) {
	pct := sizing.SmartSizePercent(2, sizing.VolatilityExtreme, true, 50, 1, 20)
	assert.GreaterOrEqual(t, pct, 1.0)
	assert.LessOrEqual(t, pct, 20.0)
}

func TestSmartSizePercent_HighSignalStrengthScalesUp(t *testing.T) {
	low := sizing.SmartSizePercent(2, sizing.VolatilityMedium, true, 50, 0.5, 50)
	high := sizing.SmartSizePercent(2, sizing.VolatilityMedium, true, 90, 0.5, 50)
	assert.Greater(t, high, low)
}

func TestClassicalQuantity_RespectsMarginCap(t *testing.T) {
	qty := sizing.ClassicalQuantity(10000, 100, 99.99, 10, 2)
	marginCap := 0.5 * (10000 * 10) / 100
	assert.LessOrEqual(t, qty, marginCap)
}
