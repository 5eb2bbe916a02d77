package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ItemLookup reports which of the given item ids exist.
type ItemLookup interface {
	ExistingItemIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// ValidateOrderFields checks the order-level fields and applies the default
// status.
func ValidateOrderFields(in WriteOrderInput) (int, Status, error) {
	if in.TableNumber == nil {
		return 0, "", fmt.Errorf("%w: table_number is required", ErrInvalidTableNumber)
	}
	table := *in.TableNumber
	if table < MinTableNumber || table > MaxTableNumber {
		return 0, "", fmt.Errorf("%w: %d is outside [%d, %d]", ErrInvalidTableNumber, table, MinTableNumber, MaxTableNumber)
	}

	status := StatusPaid
	if in.Status != nil {
		s, err := ParseStatus(*in.Status)
		if err != nil {
			return 0, "", err
		}
		status = s
	}
	return table, status, nil
}

// ParseStatus accepts only the exact stored spellings.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPaid, StatusPending, StatusReady:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q, expected one of PAID, PENDING, READY", ErrInvalidStatus, raw)
}

// ValidateLineItems checks a submitted items list. Entries are examined in
// order and the first failing check is reported; per entry the checks are
// shape, existence, minimum quantity, then repetition.
func ValidateLineItems(ctx context.Context, raw json.RawMessage, lookup ItemLookup) ([]LineItemInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptySelection
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%w: items must be a list", ErrMalformedEntry)
	}
	if len(entries) == 0 {
		return nil, ErrEmptySelection
	}

	// Shape errors are deferred so that an earlier entry's existence or
	// quantity failure still wins.
	parsed := make([]LineItemInput, 0, len(entries))
	var shapeErr error
	for i, e := range entries {
		line, err := parseEntry(i, e)
		if err != nil {
			shapeErr = err
			break
		}
		parsed = append(parsed, line)
	}

	existing := map[int64]bool{}
	if len(parsed) > 0 {
		ids := make([]int64, 0, len(parsed))
		for _, l := range parsed {
			ids = append(ids, l.ItemID)
		}
		var err error
		existing, err = lookup.ExistingItemIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[int64]struct{}, len(parsed))
	for _, l := range parsed {
		if !existing[l.ItemID] {
			return nil, fmt.Errorf("%w: item %d does not exist", ErrItemNotFound, l.ItemID)
		}
		if l.Quantity < MinQuantity {
			return nil, fmt.Errorf("%w: quantity of item %d cannot be less than %d", ErrQuantityBelowMin, l.ItemID, MinQuantity)
		}
		if l.Quantity > MaxQuantity {
			return nil, fmt.Errorf("%w: quantity of item %d cannot exceed %d", ErrQuantityOutOfRange, l.ItemID, MaxQuantity)
		}
		if _, dup := seen[l.ItemID]; dup {
			return nil, fmt.Errorf("%w: item %d submitted more than once", ErrDuplicateItem, l.ItemID)
		}
		seen[l.ItemID] = struct{}{}
	}

	if shapeErr != nil {
		return nil, shapeErr
	}
	return parsed, nil
}

// ValidateLineItem applies the per-entry checks to a single {id, quantity}
// object.
func ValidateLineItem(ctx context.Context, raw json.RawMessage, lookup ItemLookup) (LineItemInput, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return LineItemInput{}, fmt.Errorf("%w: empty body", ErrMalformedEntry)
	}

	list := make([]byte, 0, len(trimmed)+2)
	list = append(list, '[')
	list = append(list, trimmed...)
	list = append(list, ']')

	lines, err := ValidateLineItems(ctx, list, lookup)
	if err != nil {
		return LineItemInput{}, err
	}
	return lines[0], nil
}

func parseEntry(idx int, raw json.RawMessage) (LineItemInput, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return LineItemInput{}, fmt.Errorf("%w: entry %d must be an object, got %s", ErrMalformedEntry, idx, truncate(raw))
	}

	idRaw, hasID := fields["id"]
	qtyRaw, hasQty := fields["quantity"]
	if !hasID || !hasQty || len(fields) != 2 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return LineItemInput{}, fmt.Errorf("%w: entry %d must have keys {id, quantity}, got {%s}", ErrMalformedEntry, idx, strings.Join(keys, ", "))
	}

	var line LineItemInput
	if err := json.Unmarshal(idRaw, &line.ItemID); err != nil {
		return LineItemInput{}, fmt.Errorf("%w: entry %d id must be an integer, got %s", ErrMalformedEntry, idx, truncate(idRaw))
	}
	if err := json.Unmarshal(qtyRaw, &line.Quantity); err != nil {
		return LineItemInput{}, fmt.Errorf("%w: entry %d quantity must be an integer, got %s", ErrMalformedEntry, idx, truncate(qtyRaw))
	}
	return line, nil
}

func truncate(raw json.RawMessage) string {
	const max = 40
	s := string(raw)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
