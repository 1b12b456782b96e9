package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harbordocs/harbor/internal/logger"
)

// NotAvailable is the sentinel a completion returns when it cannot determine
// a field value. Fields resolved to it are left blank rather than filled.
const NotAvailable = "N/A"

// contextSnippetLimit caps how much of each retrieved chunk feeds the prompt.
const contextSnippetLimit = 500

const fieldSystemPrompt = "You are a helpful assistant that fills out form fields " +
	"based on provided context. Be concise and accurate."

// CompletionProvider produces a single form field value from a prompt plus a
// shared context block.
type CompletionProvider interface {
	CompleteField(ctx context.Context, prompt, label, contextBlock string) (string, error)
}

// LLMService resolves field values through the OpenAI chat API.
type LLMService struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// NewLLMService creates a new LLMService.
func NewLLMService(apiKey, model string, log *logger.Logger) *LLMService {
	if model == "" {
		model = openai.GPT4
	}
	return &LLMService{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: log.WithField("component", "llm"),
	}
}

// buildFieldContext assembles the shared context block for a fill: retrieved
// chunk snippets first, then the caller's explicit form data. Form data keys
// are sorted so the block is deterministic.
func buildFieldContext(hits []SearchHit, formData map[string]string) string {
	var b strings.Builder
	b.WriteString("Context Information:\n")

	if len(hits) > 0 {
		b.WriteString("Relevant documents:\n")
		for i, hit := range hits {
			snippet := hit.Content
			if len(snippet) > contextSnippetLimit {
				cut := contextSnippetLimit
				for cut > 0 && !utf8.RuneStart(snippet[cut]) {
					cut--
				}
				snippet = snippet[:cut]
			}
			fmt.Fprintf(&b, "%d. %s...\n", i+1, snippet)
		}
	}

	if len(formData) > 0 {
		b.WriteString("\nUser-provided data:\n")
		keys := make([]string, 0, len(formData))
		for k := range formData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, formData[k])
		}
	}

	return b.String()
}

// fieldUserPrompt combines the context block with the field's stored prompt.
func fieldUserPrompt(prompt, label, contextBlock string) string {
	return fmt.Sprintf(
		"%s\n\nTask: %s\n\nPlease provide a concise, accurate response for the field %q. "+
			"If you cannot determine the answer from the context, respond with %q.",
		contextBlock, prompt, label, NotAvailable,
	)
}

// CompleteField asks the model for one field value given the field's prompt
// and the shared context block. The response is trimmed; an empty response
// maps to the NotAvailable sentinel.
func (s *LLMService) CompleteField(ctx context.Context, prompt, label, contextBlock string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fieldSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fieldUserPrompt(prompt, label, contextBlock)},
		},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	value := strings.TrimSpace(resp.Choices[0].Message.Content)
	if value == "" {
		return NotAvailable, nil
	}
	return value, nil
}
