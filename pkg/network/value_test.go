package network

import (
	"math"
	"testing"
)

func TestValueAsFloat(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		want    float64
		wantErr bool
	}{
		{"float", FloatValue(42.5), 42.5, false},
		{"int", IntValue(7), 7, false},
		{"bool true", BoolValue(true), 1, false},
		{"bool false", BoolValue(false), 0, false},
		{"numeric string", StringValue("3.14"), 3.14, false},
		{"non-numeric string", StringValue("coal"), 0, true},
		{"empty string", StringValue(""), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.AsFloat()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %g", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestValueAsString(t *testing.T) {
	if got := FloatValue(1.5).AsString(); got != "1.5" {
		t.Errorf("float: got %q", got)
	}
	if got := IntValue(10).AsString(); got != "10" {
		t.Errorf("int: got %q", got)
	}
	if got := BoolValue(true).AsString(); got != "true" {
		t.Errorf("bool: got %q", got)
	}
	if got := StringValue("wind").AsString(); got != "wind" {
		t.Errorf("string: got %q", got)
	}
}

func TestValueIsNaN(t *testing.T) {
	if !FloatValue(math.NaN()).IsNaN() {
		t.Error("NaN float should report IsNaN")
	}
	if FloatValue(0).IsNaN() {
		t.Error("zero float should not report IsNaN")
	}
	if StringValue("NaN").IsNaN() {
		t.Error("string should never report IsNaN")
	}
}

func TestValueEqual(t *testing.T) {
	if !FloatValue(2).Equal(FloatValue(2)) {
		t.Error("equal floats")
	}
	if FloatValue(2).Equal(IntValue(2)) {
		t.Error("different types should not be equal")
	}
	if !FloatValue(math.NaN()).Equal(FloatValue(math.NaN())) {
		t.Error("NaN markers should compare equal to each other")
	}
	if !StringValue("a").Equal(StringValue("a")) {
		t.Error("equal strings")
	}
}
