package bigint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckedMul(t *testing.T) {
	result, err := CheckedMul(big.NewInt(50_000_000_000), big.NewInt(21000))
	require.NoError(t, err)
	require.Equal(t, "1050000000000000", result.String())

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	_, err = CheckedMul(max, big.NewInt(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMul(big.NewInt(-1), big.NewInt(2))
	require.ErrorIs(t, err, ErrNegative)
}

func TestCheckedAdd(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	result, err := CheckedAdd(max, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.Cmp(max))

	_, err = CheckedAdd(max, big.NewInt(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestFits256(t *testing.T) {
	require.True(t, Fits256(nil))
	require.True(t, Fits256(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))))
	require.False(t, Fits256(new(big.Int).Lsh(big.NewInt(1), 256)))
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "0.001", FormatUnits(big.NewInt(1_000_000_000_000_000), 18))
	require.Equal(t, "0.0", FormatUnits(nil, 18))
	require.Equal(t, "1.0", FormatUnits(big.NewInt(1_000_000_000_000_000_000), 18))
	require.Equal(t, "-0.5", FormatUnits(big.NewInt(-50), 2))
	require.Equal(t, "21000", FormatUnits(big.NewInt(21000), 0))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("0.001", 18)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000", v.String())

	v, err = ParseUnits("1", 18)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", v.String())

	v, err = ParseUnits(".5", 9)
	require.NoError(t, err)
	require.Equal(t, "500000000", v.String())

	_, err = ParseUnits("0.0000000001", 9)
	require.Error(t, err)

	_, err = ParseUnits("-1", 18)
	require.Error(t, err)

	_, err = ParseUnits("1e18", 18)
	require.Error(t, err)
}
