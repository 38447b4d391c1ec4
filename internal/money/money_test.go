package money

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{1234.56, 123456},
		{-1234.56, -123456},
		{0.005, 1},
		{-0.005, -1},
		{1.005, 101},
		{2.675, 268},
		{19.99, 1999},
		{0.1 + 0.2, 30},
		{1000, 100000},
	}

	for _, tt := range tests {
		got, err := ToMinorUnits(tt.in)
		require.NoError(t, err, "in=%v", tt.in)
		assert.Equal(t, tt.want, got, "in=%v", tt.in)
	}
}

func TestToMinorUnits_RejectsNonFinite(t *testing.T) {
	for _, in := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ToMinorUnits(in)
		assert.ErrorIs(t, err, ErrNonFinite)
	}

	_, err := ToMinorUnits(1e20)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestRoundTrip_FloatPath(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	edges := []int64{0, 1, -1, 99, -99, 100, 123456, 999_999_999_999_999, -999_999_999_999_999}

	for _, x := range edges {
		got, err := ToMinorUnits(FromMinorUnits(x))
		require.NoError(t, err)
		require.Equal(t, x, got)
	}

	for i := 0; i < 10000; i++ {
		x := r.Int64N(2_000_000_000_000_000) - 1_000_000_000_000_000
		if x <= -1e15 || x >= 1e15 {
			continue
		}
		got, err := ToMinorUnits(FromMinorUnits(x))
		require.NoError(t, err)
		require.Equal(t, x, got, "x=%d", x)
	}
}

func TestRoundTrip_DecimalPathIsExact(t *testing.T) {
	for _, x := range []int64{math.MaxInt64, math.MinInt64, 1, -1, 0, 4503599627370497} {
		got, err := FromDecimal(Decimal(x))
		require.NoError(t, err)
		assert.Equal(t, x, got)
	}
}

func TestRoundTrip_TwoDecimalAmounts(t *testing.T) {
	for _, s := range []string{"0.01", "12.30", "1234.56", "-7.05", "99999999.99"} {
		a := decimal.RequireFromString(s)
		minor, err := FromDecimal(a)
		require.NoError(t, err)
		assert.True(t, Decimal(minor).Equal(a), "s=%s", s)
	}
}

func TestParseMinorUnits(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1,234.56", 123456, false},
		{"2,500.00", 250000, false},
		{"1,000", 100000, false},
		{" 42 ", 4200, false},
		{"-3.5", -350, false},
		{"0.125", 13, false},
		{"", 0, true},
		{"abc", 0, true},
		{",", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseMinorUnits(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAmount, "in=%q", tt.in)
			continue
		}
		require.NoError(t, err, "in=%q", tt.in)
		assert.Equal(t, tt.want, got, "in=%q", tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INR 2500.00", Format(250000, "INR"))
	assert.Equal(t, "USD -0.05", Format(-5, "USD"))
}
