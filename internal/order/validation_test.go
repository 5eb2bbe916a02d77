package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"orderdesk-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	existing map[int64]bool
	err      error
	calls    int
}

func (s *stubLookup) ExistingItemIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]bool{}
	for _, id := range ids {
		if s.existing[id] {
			out[id] = true
		}
	}
	return out, nil
}

func menu() *stubLookup {
	return &stubLookup{existing: map[int64]bool{1: true, 3: true, 5: true}}
}

func TestValidateLineItems(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		want    []LineItemInput
	}{
		{"Missing", "", ErrEmptySelection, nil},
		{"Null", "null", ErrEmptySelection, nil},
		{"EmptyList", "[]", ErrEmptySelection, nil},
		{"NotAList", `{"id": 3, "quantity": 1}`, ErrMalformedEntry, nil},
		{"EntryNotAnObject", `[3]`, ErrMalformedEntry, nil},
		{"MissingQuantity", `[{"id": 3}]`, ErrMalformedEntry, nil},
		{"ExtraKey", `[{"id": 3, "quantity": 1, "note": "no onions"}]`, ErrMalformedEntry, nil},
		{"LegacyAmountKey", `[{"id": 3, "amount": 1}]`, ErrMalformedEntry, nil},
		{"IDNotInteger", `[{"id": "three", "quantity": 1}]`, ErrMalformedEntry, nil},
		{"QuantityNotInteger", `[{"id": 3, "quantity": 1.5}]`, ErrMalformedEntry, nil},
		{"UnknownItem", `[{"id": 7, "quantity": 2}]`, ErrItemNotFound, nil},
		{"ZeroQuantity", `[{"id": 3, "quantity": 0}]`, ErrQuantityBelowMin, nil},
		{"NegativeQuantity", `[{"id": 3, "quantity": -4}]`, ErrQuantityBelowMin, nil},
		{"QuantityOverflowsColumn", `[{"id": 1, "quantity": 3000000000}]`, ErrQuantityOutOfRange, nil},
		{"DuplicateItem", `[{"id": 3, "quantity": 1}, {"id": 3, "quantity": 2}]`, ErrDuplicateItem, nil},
		{
			"Valid",
			`[{"id": 1, "quantity": 2}, {"quantity": 1, "id": 5}]`,
			nil,
			[]LineItemInput{{ItemID: 1, Quantity: 2}, {ItemID: 5, Quantity: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := ValidateLineItems(context.Background(), json.RawMessage(tt.raw), menu())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsValidation(err))
				assert.Nil(t, lines)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestValidateLineItems_Precedence(t *testing.T) {
	ctx := context.Background()

	t.Run("EarlierEntryFailureBeatsLaterMalformedEntry", func(t *testing.T) {
		_, err := ValidateLineItems(ctx, json.RawMessage(`[{"id": 7, "quantity": 1}, "oops"]`), menu())
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("MalformedEntryBeatsLaterUnknownItem", func(t *testing.T) {
		_, err := ValidateLineItems(ctx, json.RawMessage(`["oops", {"id": 7, "quantity": 1}]`), menu())
		assert.ErrorIs(t, err, ErrMalformedEntry)
	})

	t.Run("UnknownIDReportedBeforeQuantity", func(t *testing.T) {
		_, err := ValidateLineItems(ctx, json.RawMessage(`[{"id": 7, "quantity": 0}]`), menu())
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("UnknownRepeatedIDReportsNotFound", func(t *testing.T) {
		_, err := ValidateLineItems(ctx, json.RawMessage(`[{"id": 7, "quantity": 1}, {"id": 7, "quantity": 1}]`), menu())
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("QuantityReportedBeforeDuplicate", func(t *testing.T) {
		_, err := ValidateLineItems(ctx, json.RawMessage(`[{"id": 3, "quantity": 1}, {"id": 3, "quantity": 0}]`), menu())
		assert.ErrorIs(t, err, ErrQuantityBelowMin)
	})
}

func TestValidateLineItems_SingleLookup(t *testing.T) {
	lookup := menu()
	_, err := ValidateLineItems(context.Background(),
		json.RawMessage(`[{"id": 1, "quantity": 1}, {"id": 3, "quantity": 1}, {"id": 5, "quantity": 1}]`), lookup)

	assert.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
}

func TestValidateLineItems_LookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := ValidateLineItems(context.Background(),
		json.RawMessage(`[{"id": 1, "quantity": 1}]`), &stubLookup{err: boom})

	assert.ErrorIs(t, err, boom)
	assert.False(t, IsValidation(err))
}

func TestValidateLineItem(t *testing.T) {
	ctx := context.Background()

	line, err := ValidateLineItem(ctx, json.RawMessage(`{"id": 5, "quantity": 10}`), menu())
	require.NoError(t, err)
	assert.Equal(t, LineItemInput{ItemID: 5, Quantity: 10}, line)

	_, err = ValidateLineItem(ctx, json.RawMessage(`  `), menu())
	assert.ErrorIs(t, err, ErrMalformedEntry)

	_, err = ValidateLineItem(ctx, json.RawMessage(`{"id": 5}`), menu())
	assert.ErrorIs(t, err, ErrMalformedEntry)

	_, err = ValidateLineItem(ctx, json.RawMessage(`{"id": 5, "quantity": 0}`), menu())
	assert.ErrorIs(t, err, ErrQuantityBelowMin)
}

func TestValidateOrderFields(t *testing.T) {
	tests := []struct {
		name       string
		in         WriteOrderInput
		wantTable  int
		wantStatus Status
		wantErr    error
	}{
		{"MissingTable", WriteOrderInput{}, 0, "", ErrInvalidTableNumber},
		{"TableZero", WriteOrderInput{TableNumber: utils.IntPtr(0)}, 0, "", ErrInvalidTableNumber},
		{"TableFiftyOne", WriteOrderInput{TableNumber: utils.IntPtr(51)}, 0, "", ErrInvalidTableNumber},
		{"DefaultStatus", WriteOrderInput{TableNumber: utils.IntPtr(1)}, 1, StatusPaid, nil},
		{"UpperBound", WriteOrderInput{TableNumber: utils.IntPtr(50), Status: utils.StrPtr("PENDING")}, 50, StatusPending, nil},
		{"LowercaseStatus", WriteOrderInput{TableNumber: utils.IntPtr(7), Status: utils.StrPtr("ready")}, 0, "", ErrInvalidStatus},
		{"PaddedStatus", WriteOrderInput{TableNumber: utils.IntPtr(7), Status: utils.StrPtr(" READY")}, 0, "", ErrInvalidStatus},
		{"UnknownStatus", WriteOrderInput{TableNumber: utils.IntPtr(7), Status: utils.StrPtr("SERVED")}, 0, "", ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, status, err := ValidateOrderFields(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTable, table)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}
