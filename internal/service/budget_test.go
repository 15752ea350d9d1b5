package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseBudget(t *testing.T) {
	const max = 1_000_000

	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr error
	}{
		{name: "plain integer", input: "1500", want: 1500},
		{name: "decimal point", input: "99.5", want: 99.5},
		{name: "decimal comma", input: "99,5", want: 99.5},
		{name: "thousands with spaces", input: "1 500", want: 1500},
		{name: "surrounding whitespace", input: "  200\t", want: 200},
		{name: "non-breaking space", input: "1 500", want: 1500},
		{name: "not a number", input: "сто рублей", wantErr: ErrBudgetNotANumber},
		{name: "empty", input: "", wantErr: ErrBudgetNotANumber},
		{name: "double comma", input: "1,,5", wantErr: ErrBudgetNotANumber},
		{name: "zero", input: "0", wantErr: ErrBudgetNotPositive},
		{name: "negative", input: "-100", wantErr: ErrBudgetNotPositive},
		{name: "above cap", input: "1000001", wantErr: ErrBudgetTooLarge},
		{name: "exactly cap", input: "1000000", want: 1_000_000},
		{name: "infinity", input: "inf", wantErr: ErrBudgetNotANumber},
		{name: "nan", input: "nan", wantErr: ErrBudgetNotANumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBudget(tt.input, max)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestParseBudgetRoundtripProperty checks that any valid budget survives a
// format/parse cycle unchanged.
func TestParseBudgetRoundtripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const max = 1_000_000
		value := rapid.Float64Range(0.01, max).Draw(t, "value")

		parsed, err := ParseBudget(FormatBudget(value), max)
		if err != nil {
			t.Fatalf("roundtrip of %v failed: %v", value, err)
		}
		if parsed != value {
			t.Fatalf("roundtrip changed value: %v != %v", parsed, value)
		}
	})
}

// TestParseBudgetCommaEqualsPointProperty checks comma and point inputs
// parse identically.
func TestParseBudgetCommaEqualsPointProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		whole := rapid.IntRange(1, 999_999).Draw(t, "whole")
		frac := rapid.IntRange(0, 99).Draw(t, "frac")

		withPoint := FormatBudget(float64(whole)) + "." + twoDigits(frac)
		withComma := FormatBudget(float64(whole)) + "," + twoDigits(frac)

		a, errA := ParseBudget(withPoint, 1_000_001)
		b, errB := ParseBudget(withComma, 1_000_001)
		if errA != nil || errB != nil {
			t.Fatalf("unexpected errors: %v, %v", errA, errB)
		}
		if a != b {
			t.Fatalf("comma and point parse differently: %v != %v", a, b)
		}
	})
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
