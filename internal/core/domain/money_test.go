package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyDecimals(t *testing.T) {
	assert.Equal(t, 2, CurrencyDecimals("USD"))
	assert.Equal(t, 2, CurrencyDecimals("eur"))
	assert.Equal(t, 0, CurrencyDecimals("JPY"))
	assert.Equal(t, 0, CurrencyDecimals("krw"))
	assert.Equal(t, 0, CurrencyDecimals("VND"))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals int
		want     int64
		wantErr  bool
	}{
		{"dollars and cents", "19.99", 2, 1999, false},
		{"whole dollars", "20", 2, 2000, false},
		{"trailing dot fraction", "5.1", 2, 510, false},
		{"zero decimals currency", "50000", 0, 50000, false},
		{"leading dot", ".99", 2, 99, false},
		{"zero", "0", 2, 0, false},
		{"too many decimal places", "19.999", 2, 0, true},
		{"fraction on zero-decimal currency", "100.5", 0, 0, true},
		{"negative", "-5.00", 2, 0, true},
		{"empty", "", 2, 0, true},
		{"just a dot", ".", 2, 0, true},
		{"garbage", "abc", 2, 0, true},
		{"overflow", "99999999999999999999", 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "19.99", FormatAmount(1999, 2))
	assert.Equal(t, "0.05", FormatAmount(5, 2))
	assert.Equal(t, "50000", FormatAmount(50000, 0))
	assert.Equal(t, "19.990000", FormatAmount(19990000, 6))
}

func TestScaleAmount_Up(t *testing.T) {
	// 19.99 USD (2 decimals) -> 6-decimal settlement token base units
	got, err := ScaleAmount(1999, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(19990000), got)

	// 10.99 scales exactly, no drift
	got, err = ScaleAmount(1099, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(10990000), got)

	// 50000 JPY (0 decimals) -> 6 decimals
	got, err = ScaleAmount(50000, 0, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(50000000000), got)
}

func TestScaleAmount_Down(t *testing.T) {
	got, err := ScaleAmount(19990000, 6, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), got)

	// Scaling down must refuse precision loss, not round
	_, err = ScaleAmount(19990001, 6, 2)
	require.Error(t, err)
}

func TestScaleAmount_SamePrecision(t *testing.T) {
	got, err := ScaleAmount(1234, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got)
}

func TestScaleAmount_Overflow(t *testing.T) {
	_, err := ScaleAmount(1<<62, 0, 6)
	require.Error(t, err)
}

func TestParseThenScale_RoundTrip(t *testing.T) {
	// The documented end-to-end conversion: "19.99" USD to settlement units.
	minor, err := ParseAmount("19.99", CurrencyDecimals("USD"))
	require.NoError(t, err)

	settlement, err := ScaleAmount(minor, CurrencyDecimals("USD"), 6)
	require.NoError(t, err)
	assert.Equal(t, int64(19990000), settlement)
}
