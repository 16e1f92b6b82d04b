package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigValidatorCollectsAllErrors(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("region_column", "").
		RequiredMap("name_mapping", 0).
		NonNegativeFloat("share", -0.5)

	if !cv.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := len(cv.Errors()); got != 3 {
		t.Fatalf("expected 3 errors, got %d", got)
	}

	err := cv.Validate()
	if err == nil {
		t.Fatal("Validate should fail")
	}
	for _, want := range []string{"region_column", "name_mapping", "share"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("combined error missing %q: %v", want, err)
		}
	}
}

func TestConfigValidatorPasses(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.Required("name", "value").
		MinInt("weights", 4, 1).
		RangeFloat("max_cf", 0.95, 0, 1).
		OneOf("grouping", "by_voltage", []string{"ignore_voltage", "by_voltage"})

	if cv.HasErrors() {
		t.Fatalf("unexpected errors: %v", cv.Errors())
	}
	if err := cv.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestConfigValidatorCustom(t *testing.T) {
	sentinel := errors.New("bad rule")
	cv := NewConfigValidator("TestConfig")
	cv.Custom("rules", func() error { return sentinel })

	err := cv.Validate()
	if !errors.Is(err, sentinel) {
		t.Fatalf("custom error not propagated: %v", err)
	}
}

func TestConfigValidatorWhen(t *testing.T) {
	cv := NewConfigValidator("TestConfig")
	cv.When(false, func(cv *ConfigValidator) {
		cv.Required("bus", "")
	})
	if cv.HasErrors() {
		t.Fatal("condition false should skip validations")
	}

	cv.When(true, func(cv *ConfigValidator) {
		cv.Required("bus", "")
	})
	if !cv.HasErrors() {
		t.Fatal("condition true should apply validations")
	}
}
