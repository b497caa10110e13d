// Package feemath implements the fixed-point percentage arithmetic used by
// the settlement engine. Percentages are integers where 100% equals
// 100 * 10^decimals; every division floors. No floating point is used
// anywhere on this path.
package feemath

import "math/big"

var bigHundred = big.NewInt(100)

// Pow10 returns 10^n as a fresh big.Int.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// PercentOf returns amount * percent / (100 * 10^decimals), truncated.
// percent is a fixed-point percentage at the given decimal precision.
func PercentOf(amount, percent *big.Int, decimals uint8) *big.Int {
	num := new(big.Int).Mul(amount, percent)
	den := new(big.Int).Mul(bigHundred, Pow10(decimals))
	return num.Div(num, den)
}

// CompoundPercent returns the fixed-point percentage equal to taking a% of
// b%, truncated at the given precision. Truncation happens here, in
// percentage space, before the result is ever applied to an amount.
func CompoundPercent(a, b *big.Int, decimals uint8) *big.Int {
	num := new(big.Int).Mul(a, b)
	den := new(big.Int).Mul(bigHundred, Pow10(decimals))
	return num.Div(num, den)
}

// ConvertScale rescales a fixed-point value from one decimal precision to
// another: value * 10^to / 10^from, truncated. Converting to a coarser
// precision loses the sub-precision digits.
func ConvertScale(value *big.Int, from, to uint8) *big.Int {
	num := new(big.Int).Mul(value, Pow10(to))
	return num.Div(num, Pow10(from))
}
