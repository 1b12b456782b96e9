package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FieldType classifies a fillable PDF form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeDropdown FieldType = "dropdown"
)

// FieldMapping describes one fillable field extracted from a PDF template.
// Options is populated for dropdown fields only.
type FieldMapping struct {
	Type      FieldType `json:"type"`
	Label     string    `json:"label"`
	Required  bool      `json:"required,omitempty"`
	Options   []string  `json:"options,omitempty"`
	LLMPrompt string    `json:"llm_prompt,omitempty"`
}

// Validate checks that the mapping carries the attributes its type requires.
func (m *FieldMapping) Validate() error {
	switch m.Type {
	case FieldTypeText, FieldTypeCheckbox:
	case FieldTypeDropdown:
		if len(m.Options) == 0 {
			return fmt.Errorf("dropdown field %q has no options", m.Label)
		}
	default:
		return fmt.Errorf("unknown field type %q for field %q", m.Type, m.Label)
	}
	return nil
}

// FieldMappings holds the template's field descriptors keyed by field name.
// Stored as a JSON column; validated at the store boundary so business logic
// never sees an untyped blob.
type FieldMappings map[string]FieldMapping

// Value implements the driver.Valuer interface for database serialization.
func (f FieldMappings) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Every decoded mapping is validated before it is accepted.
func (f *FieldMappings) Scan(value interface{}) error {
	if value == nil {
		*f = FieldMappings{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FieldMappings")
		}
		bytes = []byte(str)
	}
	var decoded FieldMappings
	if err := json.Unmarshal(bytes, &decoded); err != nil {
		return err
	}
	for name, mapping := range decoded {
		if mapping.Label == "" {
			mapping.Label = name
			decoded[name] = mapping
		}
		if err := mapping.Validate(); err != nil {
			return fmt.Errorf("invalid field mapping: %w", err)
		}
	}
	*f = decoded
	return nil
}

// PromptMap holds per-field LLM prompts keyed by field name.
type PromptMap map[string]string

// Value implements the driver.Valuer interface for database serialization.
func (p PromptMap) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *PromptMap) Scan(value interface{}) error {
	if value == nil {
		*p = PromptMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan PromptMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, p)
}

// PdfTemplate represents an uploaded fillable PDF form template.
// Field mappings are extracted once at upload time and are read-only except
// for prompt updates.
type PdfTemplate struct {
	ID            string        `gorm:"type:text;primaryKey" json:"id"`
	UserID        string        `gorm:"type:text;not null;index:idx_templates_user" json:"user_id"`
	Name          string        `gorm:"type:text;not null" json:"name"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	StorageKey    string        `gorm:"type:text;not null" json:"storage_key"`
	FieldMappings FieldMappings `gorm:"type:text" json:"field_mappings"`
	LLMPrompts    PromptMap     `gorm:"type:text" json:"llm_prompts"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName returns the database table name for PdfTemplate.
func (PdfTemplate) TableName() string {
	return "pdf_templates"
}

// GenerationStatus represents the outcome of one template fill.
type GenerationStatus string

const (
	GenerationStatusCompleted GenerationStatus = "COMPLETED"
	GenerationStatusFailed    GenerationStatus = "FAILED"
)

// PdfGeneration records one fill of a template, for the activity feed and
// dashboard counters.
type PdfGeneration struct {
	ID         string           `gorm:"type:text;primaryKey" json:"id"`
	UserID     string           `gorm:"type:text;not null;index:idx_generations_user" json:"user_id"`
	TemplateID string           `gorm:"type:text;not null;index:idx_generations_template" json:"template_id"`
	Template   *PdfTemplate     `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Status     GenerationStatus `gorm:"type:text" json:"status"`
	OutputKey  string           `gorm:"type:text" json:"output_key,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TableName returns the database table name for PdfGeneration.
func (PdfGeneration) TableName() string {
	return "pdf_generations"
}
