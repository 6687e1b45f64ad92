package gateway

import (
	"math/big"
	"strconv"
)

// MoneyToString renders a major-unit amount as the gateway's minor-unit
// integer string: round(amount*100) with halves rounded away from zero.
// The arithmetic runs on the shortest decimal representation through
// math/big so that amounts like 19.995 land on "2000" instead of picking up
// binary float noise.
func MoneyToString(amount float64) string {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(amount, 'f', -1, 64))
	if !ok {
		return "0"
	}
	r.Mul(r, big.NewRat(100, 1))

	num := new(big.Int).Set(r.Num())
	den := r.Denom()
	negative := num.Sign() < 0
	if negative {
		num.Neg(num)
	}

	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if new(big.Int).Lsh(rem, 1).Cmp(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if negative {
		quo.Neg(quo)
	}
	return quo.String()
}
