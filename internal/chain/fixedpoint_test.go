package chain

import (
	"math/big"
	"testing"
)

func TestFixedPointRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 10, 1150, 1000000} {
		fixed := ToFixed(v)
		if got := FromFixed(fixed); got != v {
			t.Errorf("FromFixed(ToFixed(%d)) = %d", v, got)
		}
	}
}

func TestToFixedScale(t *testing.T) {
	if got := ToFixed(10); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Errorf("ToFixed(10) = %s, want 10000000", got)
	}
}

func TestFromFixedTruncatesSubUnit(t *testing.T) {
	// 低于1个可读单位的余数在读取侧截断
	if got := FromFixed(big.NewInt(1_999_999)); got != 1 {
		t.Errorf("FromFixed(1999999) = %d, want 1", got)
	}
}

func TestIsHexAddress(t *testing.T) {
	valid := []string{
		"0x1111111111111111111111111111111111111111",
		"0xAbCdEf0123456789aBcDeF0123456789abcdef01",
	}
	for _, addr := range valid {
		if !IsHexAddress(addr) {
			t.Errorf("IsHexAddress(%s) = false", addr)
		}
	}

	invalid := []string{
		"",
		"0x123",
		"1111111111111111111111111111111111111111",
		"0xZZ11111111111111111111111111111111111111",
		"0x11111111111111111111111111111111111111111",
	}
	for _, addr := range invalid {
		if IsHexAddress(addr) {
			t.Errorf("IsHexAddress(%s) = true", addr)
		}
	}
}
