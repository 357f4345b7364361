package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// amount 使用 int64 最小貨幣單位，精度：小數點後 2 位
const (
	CurrencyScale  = 100
	CurrencyDigits = 2
)

// Amount 金額 (最小貨幣單位，例如分)
// 所有加減都在整數上進行，不經過浮點數
type Amount int64

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// NewAmount 由整數單位與分組成金額，例如 NewAmount(10, 50) == 10.50
func NewAmount(units, cents int64) Amount {
	return Amount(units*CurrencyScale + cents)
}

// ParseAmount 解析十進位字串 ("1000", "12.34")
//
// 參數:
//
//	s: 十進位字串
//
// 回傳:
//
//	Amount: 解析後的金額
//	error: 格式錯誤、小數超過 2 位或溢位時回傳 ErrInvalidArgument
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a decimal number", ErrInvalidArgument, s)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal 將 decimal 轉為 Amount，拒絕超過 2 位小數的值
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.Equal(d.Truncate(CurrencyDigits)) {
		return 0, fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidArgument, d.String(), CurrencyDigits)
	}
	minor := d.Shift(CurrencyDigits)
	if minor.GreaterThan(maxAmount) || minor.LessThan(minAmount) {
		return 0, fmt.Errorf("%w: amount %s out of range", ErrInvalidArgument, d.String())
	}
	return Amount(minor.IntPart()), nil
}

// Decimal 回傳對應的 decimal 值
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -CurrencyDigits)
}

// String 固定兩位小數，例如 "1000.00"
func (a Amount) String() string {
	return a.Decimal().StringFixed(CurrencyDigits)
}

// IsPositive 是否大於零
func (a Amount) IsPositive() bool {
	return a > 0
}

// IsNegative 是否小於零
func (a Amount) IsNegative() bool {
	return a < 0
}

// add 加法，溢位時回傳 false
func (a Amount) add(b Amount) (Amount, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// MarshalJSON 以字串輸出，避免 JSON 消費端用 float 解析
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON 接受字串 "12.34" 或數字 12.34
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	v, err := AmountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
