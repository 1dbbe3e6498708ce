package validation

import (
	"fmt"
	"strings"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/domain/models"
)

// ProductionOrder checks the OP is exactly seven ASCII digits.
func ProductionOrder(op string) error {
	if len(op) != core.OPLength || !isDigits(op) {
		return fmt.Errorf("%w: production order must contain exactly %d digits: %q", core.ErrInvalidFormat, core.OPLength, op)
	}
	return nil
}

// BinNumber checks a mixing bin number is exactly eight ASCII digits.
func BinNumber(number string) error {
	if len(number) != core.BinNumberLength || !isDigits(number) {
		return fmt.Errorf("%w: %q", core.ErrInvalidNumber, number)
	}
	return nil
}

// TareWeight normalises a comma decimal separator and checks the value is a
// non-negative decimal with at most three fractional digits. Empty is allowed;
// a bare separator is not.
func TareWeight(tare string) (string, error) {
	tare = strings.Replace(tare, ",", ".", 1)

	intPart, fracPart, hasDot := strings.Cut(tare, ".")
	if hasDot && intPart == "" && fracPart == "" {
		return "", fmt.Errorf("%w: tare weight has no digits: %q", core.ErrInvalidFormat, tare)
	}
	if !isDigitsOrEmpty(intPart) {
		return "", fmt.Errorf("%w: tare weight: %q", core.ErrInvalidFormat, tare)
	}
	if hasDot && (len(fracPart) > core.TareDecimals || !isDigitsOrEmpty(fracPart)) {
		return "", fmt.Errorf("%w: tare weight must have at most %d decimals: %q", core.ErrInvalidFormat, core.TareDecimals, tare)
	}
	return tare, nil
}

// BinTares validates the bins attached to an order and returns a normalised copy.
func BinTares(bins []models.BinTare) ([]models.BinTare, error) {
	if len(bins) > core.MaxBinsPerOrder {
		return nil, fmt.Errorf("%w: at most %d bins per order, got %d", core.ErrInvalidFormat, core.MaxBinsPerOrder, len(bins))
	}
	if len(bins) == 0 {
		return nil, nil
	}

	out := make([]models.BinTare, 0, len(bins))
	for i, b := range bins {
		tare, err := TareWeight(b.TareWeight)
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", i+1, err)
		}
		out = append(out, models.BinTare{BinNumber: strings.TrimSpace(b.BinNumber), TareWeight: tare})
	}
	return out, nil
}

// RecipeCode rejects blank codes before any lookup is made.
func RecipeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: recipe code", core.ErrFieldIsEmpty)
	}
	return code, nil
}

func isDigits(s string) bool {
	return s != "" && isDigitsOrEmpty(s)
}

func isDigitsOrEmpty(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
