package domain

import "fmt"

// Ratio returns freeAmount/remainingDays with two decimals.
func Ratio(freeAmount float64, remainingDays int) (string, error) {
	if remainingDays == 0 {
		return "", fmt.Errorf("ratio of %.2f over 0 days: %w", freeAmount, ErrDivisionByZero)
	}

	return fmt.Sprintf("%.2f", freeAmount/float64(remainingDays)), nil
}
