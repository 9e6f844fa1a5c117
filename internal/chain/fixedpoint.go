package chain

import (
	"math/big"
	"regexp"
)

// FixedDecimals 链上货币精度：所有金额以 10^6 定点整数表示
const FixedDecimals = 6

var fixedScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(FixedDecimals), nil)

// ToFixed 人类可读金额转为链上定点表示
func ToFixed(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), fixedScale)
}

// FromFixed 链上定点表示转回人类可读金额（截断小数部分）
func FromFixed(amount *big.Int) int64 {
	if amount == nil {
		return 0
	}
	return new(big.Int).Div(amount, fixedScale).Int64()
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsHexAddress 校验 0x + 40位十六进制的地址格式
func IsHexAddress(s string) bool {
	return addressPattern.MatchString(s)
}
