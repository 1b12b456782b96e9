package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/storage"
)

// TemplateConfig holds storage key prefixes for template assets.
type TemplateConfig struct {
	TemplatePrefix  string
	GeneratedPrefix string
}

// fillSearchTopK is how many chunks a fill retrieves to ground completions.
const fillSearchTopK = 5

// fieldContextSearcher is the slice of the search service a fill needs.
type fieldContextSearcher interface {
	Search(ctx context.Context, userID string, req SearchRequest) (*SearchResponse, error)
}

// TemplateService manages fillable PDF templates and runs fills.
type TemplateService struct {
	templateRepo *repository.TemplateRepository
	storage      storage.ObjectStorage
	llm          CompletionProvider
	search       fieldContextSearcher
	logger       *logger.Logger

	templatePrefix  string
	generatedPrefix string
}

// NewTemplateService creates a new TemplateService.
// Parameters:
//   - templateRepo: repository for templates and generations.
//   - objectStorage: object storage for template and output bytes.
//   - llm: completion provider for prompt-driven fields.
//   - search: search service retrieving context for completions.
//   - log: logger instance.
//   - cfg: storage key prefixes.
// Returns:
//   - *TemplateService: initialized service.
func NewTemplateService(
	templateRepo *repository.TemplateRepository,
	objectStorage storage.ObjectStorage,
	llm CompletionProvider,
	search fieldContextSearcher,
	log *logger.Logger,
	cfg *TemplateConfig,
) *TemplateService {
	templatePrefix := "templates"
	generatedPrefix := "generated"
	if cfg != nil {
		if cfg.TemplatePrefix != "" {
			templatePrefix = cfg.TemplatePrefix
		}
		if cfg.GeneratedPrefix != "" {
			generatedPrefix = cfg.GeneratedPrefix
		}
	}
	return &TemplateService{
		templateRepo:    templateRepo,
		storage:         objectStorage,
		llm:             llm,
		search:          search,
		logger:          log.WithField("component", "template"),
		templatePrefix:  templatePrefix,
		generatedPrefix: generatedPrefix,
	}
}

// CreateTemplate analyzes an uploaded PDF, stores its bytes, and persists
// the template with the extracted field mappings.
func (s *TemplateService) CreateTemplate(ctx context.Context, userID, name, description string, pdfData []byte) (*domain.PdfTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("template name is required")
	}

	mappings, err := analyzeFormFields(pdfData)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := path.Join(s.templatePrefix, userID, id+".pdf")
	if err := s.storage.Upload(ctx, key, bytes.NewReader(pdfData), int64(len(pdfData)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store template: %w", err)
	}

	tmpl := &domain.PdfTemplate{
		ID:            id,
		UserID:        userID,
		Name:          name,
		Description:   description,
		StorageKey:    key,
		FieldMappings: mappings,
		LLMPrompts:    domain.PromptMap{},
	}
	if err := s.templateRepo.Create(ctx, tmpl); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	s.logger.WithFields(logger.Fields{
		"template_id": id,
		"user_id":     userID,
		"count":       len(mappings),
	}).Info("template created")

	return tmpl, nil
}

// ListTemplates returns the user's templates, newest first.
func (s *TemplateService) ListTemplates(ctx context.Context, userID string) ([]domain.PdfTemplate, error) {
	return s.templateRepo.ListByUser(ctx, userID)
}

// GetTemplate returns a single template owned by the user.
func (s *TemplateService) GetTemplate(ctx context.Context, userID, templateID string) (*domain.PdfTemplate, error) {
	return s.templateRepo.GetByIDForUser(ctx, templateID, userID)
}

// UpdatePrompts replaces the per-field prompts. Prompts naming unknown
// fields are rejected.
func (s *TemplateService) UpdatePrompts(ctx context.Context, userID, templateID string, prompts domain.PromptMap) (*domain.PdfTemplate, error) {
	tmpl, err := s.templateRepo.GetByIDForUser(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	for field := range prompts {
		if _, ok := tmpl.FieldMappings[field]; !ok {
			return nil, fmt.Errorf("unknown field %q", field)
		}
	}

	if err := s.templateRepo.UpdatePrompts(ctx, templateID, prompts); err != nil {
		return nil, fmt.Errorf("failed to update prompts: %w", err)
	}
	tmpl.LLMPrompts = prompts
	return tmpl, nil
}

// FillRequest carries one fill invocation. SearchQuery and UseAI together
// switch on prompt completions grounded in retrieved document context.
type FillRequest struct {
	FormData    map[string]string
	SearchQuery string
	UseAI       bool
}

// FillResult is the outcome of one template fill. Data holds the filled PDF
// bytes so the caller can stream them without a second storage round-trip.
type FillResult struct {
	GenerationID string `json:"generation_id"`
	OutputKey    string `json:"output_key"`
	Filename     string `json:"filename"`
	URL          string `json:"url"`
	Data         []byte `json:"-"`
}

// FillTemplate resolves a value for every mapped field and produces a filled
// PDF. Explicit form data wins over prompt completions; fields that resolve
// to nothing, fail their completion, or fail validation are skipped rather
// than failing the fill. A generation record is written either way.
func (s *TemplateService) FillTemplate(ctx context.Context, userID, templateID string, req FillRequest) (*FillResult, error) {
	tmpl, err := s.templateRepo.GetByIDForUser(ctx, templateID, userID)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logger.Fields{
		"template_id": templateID,
		"user_id":     userID,
	})

	result, fillErr := s.fill(ctx, tmpl, req, log)

	gen := &domain.PdfGeneration{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: templateID,
		Status:     domain.GenerationStatusCompleted,
	}
	if fillErr != nil {
		gen.Status = domain.GenerationStatusFailed
	} else {
		gen.ID = result.GenerationID
		gen.OutputKey = result.OutputKey
	}
	if err := s.templateRepo.CreateGeneration(ctx, gen); err != nil {
		log.WithField("error", err.Error()).Warn("failed to record generation")
	}

	if fillErr != nil {
		return nil, fillErr
	}
	return result, nil
}

func (s *TemplateService) fill(ctx context.Context, tmpl *domain.PdfTemplate, req FillRequest, log *logger.Logger) (*FillResult, error) {
	reader, err := s.storage.Download(ctx, tmpl.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load template pdf: %w", err)
	}
	pdfData, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read template pdf: %w", err)
	}

	formData := req.FormData
	contextBlock := ""
	useLLM := req.UseAI && strings.TrimSpace(req.SearchQuery) != ""
	if useLLM {
		resp, err := s.search.Search(ctx, tmpl.UserID, SearchRequest{
			Query: req.SearchQuery,
			TopK:  fillSearchTopK,
		})
		if err != nil {
			return nil, fmt.Errorf("context search failed: %w", err)
		}
		contextBlock = buildFieldContext(resp.Results, formData)
	}

	values := map[string]string{}
	for name, mapping := range tmpl.FieldMappings {
		llmValue := ""
		prompt, hasPrompt := tmpl.LLMPrompts[name]
		if useLLM && hasPrompt && mapping.Type == domain.FieldTypeText &&
			strings.TrimSpace(formData[name]) == "" {
			llmValue, err = s.llm.CompleteField(ctx, prompt, mapping.Label, contextBlock)
			if err != nil {
				log.WithFields(logger.Fields{
					"field": name,
					"error": err.Error(),
				}).Warn("field completion failed, skipping")
				continue
			}
		}

		value, ok := resolveFieldValue(formData[name], llmValue)
		if !ok {
			continue
		}
		if mapping.Type == domain.FieldTypeDropdown && !dropdownAllowed(mapping, value) {
			log.WithField("field", name).Warn("value not in dropdown options, skipping")
			continue
		}
		values[name] = value
	}

	filled, err := fillFormBytes(pdfData, values, tmpl.FieldMappings)
	if err != nil {
		return nil, err
	}

	generationID := uuid.NewString()
	filename := outputFilename(tmpl.Name, time.Now())
	key := path.Join(s.generatedPrefix, tmpl.UserID, generationID+".pdf")
	if err := s.storage.Upload(ctx, key, bytes.NewReader(filled), int64(len(filled)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("failed to store generated pdf: %w", err)
	}

	return &FillResult{
		GenerationID: generationID,
		OutputKey:    key,
		Filename:     filename,
		URL:          s.storage.GetURL(key),
		Data:         filled,
	}, nil
}

// RecentGenerations returns the user's latest fills for the activity views.
func (s *TemplateService) RecentGenerations(ctx context.Context, userID string, limit int) ([]domain.PdfGeneration, error) {
	return s.templateRepo.RecentGenerationsByUser(ctx, userID, limit)
}
