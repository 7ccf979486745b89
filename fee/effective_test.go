package fee

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func quote(base, maxFee, maxPriority int64) FeeQuote {
	return FeeQuote{
		BaseFeePerGas:        big.NewInt(base),
		MaxFeePerGas:         big.NewInt(maxFee),
		MaxPriorityFeePerGas: big.NewInt(maxPriority),
	}
}

func TestEffectiveGasPrice(t *testing.T) {
	tests := []struct {
		name  string
		quote FeeQuote
		want  int64
	}{
		{name: "tip fits under cap", quote: quote(100, 200, 10), want: 110},
		{name: "tip exactly fills headroom", quote: quote(100, 200, 100), want: 200},
		{name: "tip capped by max fee", quote: quote(100, 150, 80), want: 150},
		{name: "cap below base fee", quote: quote(100, 50, 10), want: 50},
		{name: "zero market", quote: quote(0, 0, 0), want: 0},
		{name: "zero tip", quote: quote(7, 7, 0), want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EffectiveGasPrice(tt.quote).Int64())
		})
	}
}

func TestEffectiveGasPriceCapBelowBaseFee(t *testing.T) {
	q := quote(100, 50, 10)

	require.Equal(t, int64(-50), PriorityFeePerGas(q).Int64())
	price := EffectiveGasPrice(q)
	require.Equal(t, int64(50), price.Int64())
	require.Equal(t, -1, price.Cmp(q.BaseFeePerGas))
}

func TestEffectiveGasPriceBounds(t *testing.T) {
	for base := int64(0); base <= 40; base += 5 {
		for maxFee := base; maxFee <= 60; maxFee += 3 {
			for tip := int64(0); tip <= 70; tip += 7 {
				q := quote(base, maxFee, tip)
				price := EffectiveGasPrice(q)

				require.LessOrEqual(t, price.Int64(), maxFee)
				require.GreaterOrEqual(t, price.Int64(), base)
				if tip <= maxFee-base {
					require.Equal(t, base+tip, price.Int64())
				} else {
					require.Equal(t, maxFee, price.Int64())
				}
			}
		}
	}
}

func TestEffectiveGasPriceDoesNotMutateInputs(t *testing.T) {
	q := quote(100, 200, 10)
	_ = EffectiveGasPrice(q)
	_ = EffectiveGasPrice(quote(100, 150, 80))

	require.Equal(t, quote(100, 200, 10), q)
}

func TestEffectiveGasPriceNilFields(t *testing.T) {
	require.Zero(t, EffectiveGasPrice(FeeQuote{}).Sign())
	require.Equal(t, int64(5), EffectiveGasPrice(FeeQuote{MaxFeePerGas: big.NewInt(5), MaxPriorityFeePerGas: big.NewInt(9)}).Int64())
}

func TestEffectiveGasPriceChecked(t *testing.T) {
	price, err := EffectiveGasPriceChecked(quote(100, 200, 10))
	require.NoError(t, err)
	require.Equal(t, int64(110), price.Int64())

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = EffectiveGasPriceChecked(FeeQuote{BaseFeePerGas: big.NewInt(1), MaxFeePerGas: huge, MaxPriorityFeePerGas: big.NewInt(1)})
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	max := new(big.Int).Sub(huge, big.NewInt(1))
	_, err = EffectiveGasPriceChecked(FeeQuote{BaseFeePerGas: max, MaxFeePerGas: max, MaxPriorityFeePerGas: max})
	require.NoError(t, err)
}
