// Package records encodes the blobs kept in the device store.
//
// Every blob is wrapped in a versioned envelope. Decoding is strict: unknown
// fields, a different version or any value that breaks a domain rule rejects
// the whole blob, and callers start from empty state instead.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"weighline/internal/weighing/app/core"
	"weighline/internal/weighing/app/validation"
	"weighline/internal/weighing/domain/models"
)

const Version = 1

var (
	ErrVersion   = errors.New("unsupported record version")
	ErrMalformed = errors.New("malformed record")
)

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps v in the current envelope.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	out, err := json.Marshal(envelope{Version: Version, Data: data})
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(out), nil
}

func decode(raw string, v any) error {
	var env envelope
	if err := strictUnmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := strictUnmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}

func DecodeOrders(raw string) ([]models.Order, error) {
	var orders []models.Order
	if err := decode(raw, &orders); err != nil {
		return nil, err
	}
	for i, o := range orders {
		if o.Code == "" {
			return nil, fmt.Errorf("%w: order %d has no code", ErrMalformed, i)
		}
		if o.ProductionOrderID != "" {
			if err := validation.ProductionOrder(o.ProductionOrderID); err != nil {
				return nil, fmt.Errorf("%w: order %d: %v", ErrMalformed, i, err)
			}
		}
		if _, err := validation.BinTares(o.Bins); err != nil {
			return nil, fmt.Errorf("%w: order %d: %v", ErrMalformed, i, err)
		}
	}
	return orders, nil
}

func DecodeExcipients(raw string) (models.Excipients, error) {
	var m models.Excipients
	if err := decode(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = models.Excipients{}
	}
	for name, entry := range m {
		if entry == nil || len(entry.Contributions) == 0 {
			return nil, fmt.Errorf("%w: material %q has no contributions", ErrMalformed, name)
		}
		if math.Abs(entry.Total-models.SumContributions(entry.Contributions)) > 1e-9 {
			return nil, fmt.Errorf("%w: material %q total does not match its contributions", ErrMalformed, name)
		}
	}
	return m, nil
}

func DecodeBins(raw string) ([]models.Bin, error) {
	var bins []models.Bin
	if err := decode(raw, &bins); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(bins))
	for i, b := range bins {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: bin %d has no id", ErrMalformed, i)
		}
		if err := validation.BinNumber(b.Number); err != nil {
			return nil, fmt.Errorf("%w: bin %d: %v", ErrMalformed, i, err)
		}
		if seen[b.Number] {
			return nil, fmt.Errorf("%w: bin %d: %v", ErrMalformed, i, core.ErrDuplicateNumber)
		}
		seen[b.Number] = true
		if b.CleaningDurationMs <= 0 || b.CleaningStartedAt <= 0 {
			return nil, fmt.Errorf("%w: bin %d has no cleaning window", ErrMalformed, i)
		}
	}
	return bins, nil
}

// DecodeFilter returns the active order filter; empty means none.
func DecodeFilter(raw string) (string, error) {
	var filter string
	if err := decode(raw, &filter); err != nil {
		return "", err
	}
	return filter, nil
}

func DecodeTheme(raw string) (string, error) {
	var theme string
	if err := decode(raw, &theme); err != nil {
		return "", err
	}
	if theme != core.ThemeDark && theme != core.ThemeLight {
		return "", fmt.Errorf("%w: theme %q", ErrMalformed, theme)
	}
	return theme, nil
}
