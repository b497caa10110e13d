package feemath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	// 2.5% of 1000 at 2 decimals: percent = 250.
	got := PercentOf(big.NewInt(1000), big.NewInt(250), 2)
	assert.Equal(t, big.NewInt(25), got)

	// 10% of 1000.
	got = PercentOf(big.NewInt(1000), big.NewInt(1000), 2)
	assert.Equal(t, big.NewInt(100), got)

	// 100% is the identity.
	got = PercentOf(big.NewInt(12345), big.NewInt(10000), 2)
	assert.Equal(t, big.NewInt(12345), got)
}

func TestPercentOf_Floors(t *testing.T) {
	// 10% of 975 at 2 decimals is 97.5, floored to 97.
	got := PercentOf(big.NewInt(975), big.NewInt(1000), 2)
	assert.Equal(t, big.NewInt(97), got)

	// 12.34% of 5 wei floors to 0. Compare with Cmp: reflect.DeepEqual
	// distinguishes big.NewInt(0) (nil abs) from a computed zero (empty abs).
	got = PercentOf(big.NewInt(5), big.NewInt(1234), 2)
	assert.Zero(t, big.NewInt(0).Cmp(got))
}

func TestPercentOf_ZeroAmount(t *testing.T) {
	got := PercentOf(big.NewInt(0), big.NewInt(9999), 2)
	assert.Equal(t, big.NewInt(0), got)
}

func TestPercentOf_LargeValues(t *testing.T) {
	// 2.34% of 1.23 ether expressed in wei.
	price, _ := new(big.Int).SetString("1230000000000000000", 10)
	want, _ := new(big.Int).SetString("28782000000000000", 10)
	got := PercentOf(price, big.NewInt(234), 2)
	assert.Equal(t, want, got)
}

func TestPercentOf_DoesNotMutateInputs(t *testing.T) {
	amount := big.NewInt(1000)
	percent := big.NewInt(250)
	_ = PercentOf(amount, percent, 2)
	assert.Equal(t, big.NewInt(1000), amount)
	assert.Equal(t, big.NewInt(250), percent)
}

func TestCompoundPercent(t *testing.T) {
	// 43.12% of 12.34% at 2 decimals is 5.321008%, truncated to 5.32%.
	got := CompoundPercent(big.NewInt(4312), big.NewInt(1234), 2)
	assert.Equal(t, big.NewInt(532), got)

	// 43.12% of 97.66% truncates to 42.11%.
	got = CompoundPercent(big.NewInt(4312), big.NewInt(9766), 2)
	assert.Equal(t, big.NewInt(4211), got)

	// 100% of anything is the identity.
	got = CompoundPercent(big.NewInt(10000), big.NewInt(1234), 2)
	assert.Equal(t, big.NewInt(1234), got)
}

func TestConvertScale(t *testing.T) {
	// 2.5% stored at 2 decimals, converted to 4 decimals.
	got := ConvertScale(big.NewInt(250), 2, 4)
	assert.Equal(t, big.NewInt(25000), got)

	// Down-conversion floors.
	got = ConvertScale(big.NewInt(255), 2, 1)
	assert.Equal(t, big.NewInt(25), got)

	// Same precision is the identity.
	got = ConvertScale(big.NewInt(250), 2, 2)
	assert.Equal(t, big.NewInt(250), got)
}

func TestPow10(t *testing.T) {
	assert.Equal(t, big.NewInt(1), Pow10(0))
	assert.Equal(t, big.NewInt(100), Pow10(2))
	assert.Equal(t, big.NewInt(1000000000000000000), Pow10(18))
}
