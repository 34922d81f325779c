package models

import "github.com/shopspring/decimal"

// FormatPence renders an amount of pence as pounds, e.g. 4500 -> "£45.00".
func FormatPence(pence int64) string {
	d := decimal.New(pence, -2)
	if d.IsNegative() {
		return "-£" + d.Abs().StringFixed(2)
	}
	return "£" + d.StringFixed(2)
}

// ParsePounds converts a pound amount such as "1000.00" into pence.
func ParsePounds(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
