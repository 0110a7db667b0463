package coupon

import (
	"testing"

	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "SAVE10", Normalize("save10"))
	assert.Equal(t, "SAVE10", Normalize("  Save10 "))
	assert.Equal(t, "WELCOME20", Normalize("welcome20"))
}

func TestResolve(t *testing.T) {
	rate, ok := Resolve("save10")
	require.True(t, ok)
	assert.Equal(t, "0.1", rate.String())

	_, ok = Resolve("NOPE")
	assert.False(t, ok)
}

func TestDiscount(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		subtotal int64
		want     int64
	}{
		{"ten percent", "SAVE10", 20000, 2000},
		{"twenty percent", "WELCOME20", 10000, 2000},
		{"thirty percent", "SOLARA30", 9999, 3000}, // 2999.7 rounds up
		{"case insensitive", "save10", 1000, 100},
		{"zero subtotal", "SAVE10", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discount(tt.code, tt.subtotal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscountUnknownCode(t *testing.T) {
	_, err := Discount("EXPIRED50", 10000)
	require.Error(t, err)
	assert.True(t, errs.IsCode(err, errs.CodeInvalidCoupon))
}
