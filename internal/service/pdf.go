package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/form"

	"github.com/harbordocs/harbor/internal/domain"
)

// checkboxTruthy reports whether a resolved value checks a checkbox.
// Matching is case-insensitive over a fixed truthy set.
func checkboxTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// dropdownAllowed reports whether a value is one of the dropdown's options.
func dropdownAllowed(mapping domain.FieldMapping, value string) bool {
	for _, opt := range mapping.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// resolveFieldValue picks the value for one field. Explicit form data wins
// over the LLM completion; the NotAvailable sentinel means no value.
func resolveFieldValue(formValue, llmValue string) (string, bool) {
	if v := strings.TrimSpace(formValue); v != "" && v != NotAvailable {
		return v, true
	}
	if v := strings.TrimSpace(llmValue); v != "" && v != NotAvailable {
		return v, true
	}
	return "", false
}

// outputFilename derives the generated PDF name from the template name and a
// timestamp, with characters unfriendly to filesystems replaced.
func outputFilename(templateName string, t time.Time) string {
	stamp := t.UTC().Format(time.RFC3339)
	replacer := strings.NewReplacer(":", "-", "/", "-", ".", "-")
	return fmt.Sprintf("%s-%s.pdf", templateName, replacer.Replace(stamp))
}

// classifyField maps a PDF form field to a field mapping, or false for field
// kinds that are not fillable through the API.
func classifyField(f form.Field) (domain.FieldMapping, bool) {
	name := f.Name
	if name == "" {
		name = f.ID
	}

	switch f.Typ {
	case form.FTText, form.FTDate:
		return domain.FieldMapping{Type: domain.FieldTypeText, Label: name}, true
	case form.FTCheckBox:
		return domain.FieldMapping{Type: domain.FieldTypeCheckbox, Label: name}, true
	case form.FTComboBox, form.FTListBox:
		return domain.FieldMapping{
			Type:    domain.FieldTypeDropdown,
			Label:   name,
			Options: splitOptions(f.Opts),
		}, true
	default:
		return domain.FieldMapping{}, false
	}
}

func splitOptions(opts string) []string {
	if opts == "" {
		return nil
	}
	parts := strings.Split(opts, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// analyzeFormFields extracts and classifies the fillable fields of a PDF.
// Field names are the PDF's own field identifiers.
func analyzeFormFields(data []byte) (domain.FieldMappings, error) {
	fields, err := api.FormFields(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read form fields: %w", err)
	}

	mappings := domain.FieldMappings{}
	for _, f := range fields {
		mapping, ok := classifyField(f)
		if !ok {
			continue
		}
		name := f.Name
		if name == "" {
			name = f.ID
		}
		mappings[name] = mapping
	}

	if len(mappings) == 0 {
		return nil, fmt.Errorf("pdf has no fillable form fields")
	}
	return mappings, nil
}

// Form fill JSON payload in the shape pdfcpu's form filler consumes.
type formFillEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type formFillCheckbox struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type formFillForm struct {
	TextFields []formFillEntry    `json:"textfield,omitempty"`
	Checkboxes []formFillCheckbox `json:"checkbox,omitempty"`
	Comboboxes []formFillEntry    `json:"combobox,omitempty"`
}

type formFillPayload struct {
	Forms []formFillForm `json:"forms"`
}

// fillFormBytes applies the resolved values to the template PDF and returns
// the filled document.
func fillFormBytes(template []byte, values map[string]string, mappings domain.FieldMappings) ([]byte, error) {
	var f formFillForm
	for name, value := range values {
		mapping, ok := mappings[name]
		if !ok {
			continue
		}
		switch mapping.Type {
		case domain.FieldTypeCheckbox:
			f.Checkboxes = append(f.Checkboxes, formFillCheckbox{Name: name, Value: checkboxTruthy(value)})
		case domain.FieldTypeDropdown:
			f.Comboboxes = append(f.Comboboxes, formFillEntry{Name: name, Value: value})
		default:
			f.TextFields = append(f.TextFields, formFillEntry{Name: name, Value: value})
		}
	}

	payload, err := json.Marshal(formFillPayload{Forms: []formFillForm{f}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode fill payload: %w", err)
	}

	var out bytes.Buffer
	if err := api.FillForm(bytes.NewReader(template), bytes.NewReader(payload), &out, nil); err != nil {
		return nil, fmt.Errorf("failed to fill form: %w", err)
	}
	return out.Bytes(), nil
}
