package llm

import (
	"log/slog"
	"math"
)

// InvoiceMathTolerance absorbs rounding in item totals.
const InvoiceMathTolerance = 0.01

// CheckInvoiceMath compares the sum of items[].total_value with total_amount.
// ok is false when they diverge by more than InvoiceMathTolerance.
func CheckInvoiceMath(record map[string]any) (calculated, total float64, ok bool) {
	total, _ = toNumber(record["total_amount"])
	items, _ := record["items"].([]any)
	for _, it := range items {
		obj, isObj := it.(map[string]any)
		if !isObj {
			continue
		}
		v, _ := toNumber(obj["total_value"])
		calculated += v
	}
	return calculated, total, math.Abs(calculated-total) <= InvoiceMathTolerance
}

// WarnOnInvoiceMath logs a warning when the invoice items do not add up.
// The record is never modified.
func WarnOnInvoiceMath(record map[string]any, logger *slog.Logger) bool {
	calculated, total, ok := CheckInvoiceMath(record)
	if !ok {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("llm.extract.invoice_math_divergence",
			"calculated", math.Round(calculated*100)/100,
			"total_amount", total,
		)
	}
	return ok
}
