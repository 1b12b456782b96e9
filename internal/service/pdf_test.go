package service

import (
	"testing"
	"time"

	"github.com/harbordocs/harbor/internal/domain"
)

func TestCheckboxTruthy(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"Yes", true},
		{"1", true},
		{" yes ", true},
		{"false", false},
		{"no", false},
		{"0", false},
		{"", false},
		{"on", false},
		{"checked", false},
	}

	for _, tt := range tests {
		if got := checkboxTruthy(tt.value); got != tt.want {
			t.Errorf("checkboxTruthy(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestDropdownAllowed(t *testing.T) {
	mapping := domain.FieldMapping{
		Type:    domain.FieldTypeDropdown,
		Options: []string{"Red", "Green", "Blue"},
	}

	if !dropdownAllowed(mapping, "Green") {
		t.Error("Green should be allowed")
	}
	if dropdownAllowed(mapping, "green") {
		t.Error("membership check is exact, green should be rejected")
	}
	if dropdownAllowed(mapping, "Yellow") {
		t.Error("Yellow should be rejected")
	}
}

func TestResolveFieldValue(t *testing.T) {
	tests := []struct {
		name      string
		formValue string
		llmValue  string
		want      string
		wantOK    bool
	}{
		{"form data wins", "from form", "from llm", "from form", true},
		{"llm fallback", "", "from llm", "from llm", true},
		{"both empty", "", "", "", false},
		{"llm sentinel suppressed", "", "N/A", "", false},
		{"form sentinel falls through", "N/A", "from llm", "from llm", true},
		{"whitespace form value ignored", "   ", "from llm", "from llm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveFieldValue(tt.formValue, tt.llmValue)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("resolveFieldValue(%q, %q) = (%q, %v), want (%q, %v)",
					tt.formValue, tt.llmValue, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOutputFilename(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 45, 0, time.UTC)
	got := outputFilename("Invoice Form", ts)
	want := "Invoice Form-2026-03-15T09-30-45Z.pdf"
	if got != want {
		t.Errorf("outputFilename = %q, want %q", got, want)
	}
}

func TestSplitOptions(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a,b,c", 3},
		{" a , b ", 2},
		{"a,,b", 2},
	}

	for _, tt := range tests {
		if got := splitOptions(tt.in); len(got) != tt.want {
			t.Errorf("splitOptions(%q) = %v, want %d entries", tt.in, got, tt.want)
		}
	}
}
