package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     uint64
	}{
		{"1", 9, 1_000_000_000},
		{"1.5", 6, 1_500_000},
		{"0.000001", 6, 1},
		{"0.0000019", 6, 1},
		{".25", 2, 25},
		{"12.3456789", 4, 123456},
		{"0.1", 9, 100_000_000},
	}
	for _, tc := range cases {
		got, err := ConvertAmount(tc.in, tc.decimals)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestConvertAmountRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.2.3", "99999999999999999999"} {
		_, err := ConvertAmount(in, 6)
		assert.ErrorIs(t, err, ErrBadAmount, in)
	}
	_, err := ConvertAmount("1", 0)
	assert.ErrorIs(t, err, ErrBadAmount)

	// мусор за пределами точности не должен молча отбрасываться
	for _, in := range []string{"1.2.3", "1.5abc", "1.5 0", "1.-5", "+1", "1_000", ".", "1e3"} {
		got, err := ConvertAmount(in, 1)
		assert.ErrorIs(t, err, ErrBadAmount, in)
		assert.Zero(t, got, in)
	}
}

func TestConvertAmountAcceptsBareSeparators(t *testing.T) {
	got, err := ConvertAmount("1.", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got)

	got, err = ConvertAmount(".5", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), got)
}

func TestConvertLamports(t *testing.T) {
	got, err := ConvertLamports("0.002")
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000_000), got)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(0, 6))
	assert.Equal(t, "1.500000", FormatAmount(1_500_000, 6))
	assert.Equal(t, "0.000001", FormatAmount(1, 6))
	assert.Equal(t, "42", FormatAmount(42, 0))
	assert.Equal(t, "0.100000000", FormatAmount(100_000_000, 9))
}

func TestRoundAmount(t *testing.T) {
	assert.InDelta(t, 1.23, RoundAmount(1.239, 2), 1e-12)
	assert.InDelta(t, 5.0, RoundAmount(5.9, 0), 1e-12)
}

func TestCalculateFeeAmounts(t *testing.T) {
	fee, transfer, err := CalculateFeeAmounts("100", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(400_000), fee)
	assert.Equal(t, uint64(99_600_000), transfer)

	fee, transfer, err = CalculateFeeAmounts("0.000249", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), fee)
	assert.Equal(t, uint64(249), transfer)

	_, _, err = CalculateFeeAmounts("", 6)
	assert.ErrorIs(t, err, ErrBadAmount)
}

func TestMintPredicates(t *testing.T) {
	assert.True(t, IsSOL(SOLMint))
	assert.True(t, IsUSDC(USDCMint))
	assert.False(t, IsSOL(USDCMint))
}
