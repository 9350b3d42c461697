package types

import "testing"

func TestAmountArithmetic(t *testing.T) {
	a := Tokens(2)
	b := Units(50_000_000)

	if got := a.Add(b); got != Units(250_000_000) {
		t.Errorf("Add: got %d, want 250000000", got.Units())
	}
	if got := a.Sub(b); got != Units(150_000_000) {
		t.Errorf("Sub: got %d, want 150000000", got.Units())
	}
}

func TestAmountPredicates(t *testing.T) {
	if !Units(0).IsZero() {
		t.Error("Units(0).IsZero() = false")
	}
	if !Units(1).IsPositive() {
		t.Error("Units(1).IsPositive() = false")
	}
	if !Units(-1).IsNegative() {
		t.Error("Units(-1).IsNegative() = false")
	}
	if Units(1).IsZero() || Units(-1).IsPositive() || Units(1).IsNegative() {
		t.Error("predicate returned true for wrong sign")
	}
}

func TestAmountFormat(t *testing.T) {
	tests := []struct {
		amount Amount
		want   string
	}{
		{Units(0), "0.00000000"},
		{Units(1), "0.00000001"},
		{Units(150_000_000), "1.50000000"},
		{Tokens(42), "42.00000000"},
		{Units(-150_000_000), "-1.50000000"},
	}
	for _, tt := range tests {
		if got := tt.amount.Format(); got != tt.want {
			t.Errorf("Format(%d): got %q, want %q", tt.amount.Units(), got, tt.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"0", Units(0), false},
		{"1", Tokens(1), false},
		{"1.5", Units(150_000_000), false},
		{"0.00000001", Units(1), false},
		{"-2.25", Units(-225_000_000), false},
		{" 3 ", Tokens(3), false},
		{"", 0, true},
		{"abc", 0, true},
		{"1.000000001", 0, true}, // too many decimal places
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q): got %d, want %d", tt.in, got.Units(), tt.want.Units())
		}
	}
}

func TestSumAmounts(t *testing.T) {
	if got := SumAmounts(Units(1), Units(2), Units(3)); got != Units(6) {
		t.Errorf("SumAmounts: got %d, want 6", got.Units())
	}
	if got := SumAmounts(); got != 0 {
		t.Errorf("SumAmounts(): got %d, want 0", got.Units())
	}
}
