package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ImagePart is an inline image attached to a content request. Vision calls
// attach the rasterized page blob here; text-only calls leave Images empty.
type ImagePart struct {
	Data     []byte
	MIMEType string // "image/png", "image/jpeg"
}

// ContentRequest represents a provider-agnostic content generation request
type ContentRequest struct {
	Messages          []interfaces.Message
	Images            []ImagePart
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider ProviderType
	Model    string
}

// Provider defines the interface for AI content generation. The retrieval
// engine and the enricher depend only on this interface so tests can inject
// a deterministic offline provider.
type Provider interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
	GetProviderType() ProviderType
	Close() error
}

// ProviderFactory creates clients lazily and routes requests to the
// provider the model string names. The factory is shared by every pool
// goroutine, so client initialization is guarded by sync.Once.
type ProviderFactory struct {
	geminiConfig  *common.GeminiConfig
	claudeConfig  *common.ClaudeConfig
	llmConfig     *common.LLMConfig
	logger        arbor.ILogger
	geminiOnce    sync.Once
	geminiClient  *genai.Client
	geminiInitErr error
	claudeOnce    sync.Once
	claudeClient  anthropic.Client
	claudeInitErr error
	geminiLimiter *rate.Limiter
	claudeLimiter *rate.Limiter
	geminiTimeout time.Duration
	claudeTimeout time.Duration
}

// Compile-time interface assertion
var _ Provider = (*ProviderFactory)(nil)

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) (*ProviderFactory, error) {
	geminiLimiter, geminiTimeout, err := limiterFromConfig(geminiConfig.RateLimit, geminiConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini rate/timeout config: %w", err)
	}
	claudeLimiter, claudeTimeout, err := limiterFromConfig(claudeConfig.RateLimit, claudeConfig.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid claude rate/timeout config: %w", err)
	}

	return &ProviderFactory{
		geminiConfig:  geminiConfig,
		claudeConfig:  claudeConfig,
		llmConfig:     llmConfig,
		logger:        logger,
		geminiLimiter: geminiLimiter,
		claudeLimiter: claudeLimiter,
		geminiTimeout: geminiTimeout,
		claudeTimeout: claudeTimeout,
	}, nil
}

// limiterFromConfig builds a rate limiter from a minimum-interval string
// like "1s" and parses the per-call timeout
func limiterFromConfig(rateLimit, timeout string) (*rate.Limiter, time.Duration, error) {
	interval, err := time.ParseDuration(rateLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid rate limit %q: %w", rateLimit, err)
	}
	callTimeout, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	return rate.NewLimiter(rate.Every(interval), 1), callTimeout, nil
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-haiku-3-5-20241022" -> Claude
// - "claude/claude-haiku-3-5-20241022" -> Claude (with prefix)
// - "gemini-2.0-flash" -> Gemini
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}

	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(f.llmConfig.DefaultProvider)
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetProviderType returns the configured default provider
func (f *ProviderFactory) GetProviderType() ProviderType {
	return ProviderType(f.llmConfig.DefaultProvider)
}

// Close releases provider clients. Neither client holds connections that
// need explicit release.
func (f *ProviderFactory) Close() error {
	return nil
}

// CheckCredentials resolves the API key for the provider the model string
// names without making a call. Commands run this before any work starts so
// a missing credential aborts the run instead of failing every call.
func (f *ProviderFactory) CheckCredentials(model string) error {
	switch f.DetectProvider(model) {
	case ProviderClaude:
		if _, err := common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey); err != nil {
			return fmt.Errorf("failed to resolve Anthropic API key: %w", err)
		}
	default:
		if _, err := common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey); err != nil {
			return fmt.Errorf("failed to resolve Gemini API key: %w", err)
		}
	}
	return nil
}

// getGeminiClient returns the Gemini client, creating it on first use
func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.geminiOnce.Do(func() {
		apiKey, err := common.ResolveAPIKey("gemini_api_key", f.geminiConfig.APIKey)
		if err != nil {
			f.geminiInitErr = fmt.Errorf("failed to resolve Gemini API key: %w", err)
			return
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			f.geminiInitErr = fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}
		f.geminiClient = client
	})
	return f.geminiClient, f.geminiInitErr
}

// getClaudeClient returns the Claude client, creating it on first use
func (f *ProviderFactory) getClaudeClient(ctx context.Context) (anthropic.Client, error) {
	f.claudeOnce.Do(func() {
		apiKey, err := common.ResolveAPIKey("anthropic_api_key", f.claudeConfig.APIKey)
		if err != nil {
			f.claudeInitErr = fmt.Errorf("failed to resolve Anthropic API key: %w", err)
			return
		}

		f.claudeClient = anthropic.NewClient(
			option.WithAPIKey(apiKey),
		)
	})
	return f.claudeClient, f.claudeInitErr
}

// GenerateContent generates content using the appropriate provider based on
// the model string. The call is single-shot; retry policy belongs to the
// caller via the Retry combinator.
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Int("image_count", len(request.Images)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	default:
		return f.generateWithGemini(ctx, request, model)
	}
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format, extracting system messages separately for SystemInstruction.
// Inline images are appended to the last user message.
func convertMessagesToGemini(messages []interfaces.Message, images []ImagePart) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		var geminiRole string
		switch msg.Role {
		case "assistant":
			geminiRole = genai.RoleModel
		default:
			geminiRole = genai.RoleUser
		}

		parts := []*genai.Part{genai.NewPartFromText(msg.Content)}
		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: parts,
		})
	}

	// Attach inline images to the last user message
	if len(images) > 0 {
		last := contents[len(contents)-1]
		for _, img := range images {
			last.Parts = append(last.Parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
		}
	}

	return contents, systemText, nil
}

// convertMessagesToClaude converts []interfaces.Message to Claude
// MessageParam format, extracting system messages for the System parameter.
// Inline images become base64 image blocks on the last user message.
func convertMessagesToClaude(messages []interfaces.Message, images []ImagePart) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for i, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		blocks := []anthropic.ContentBlockParamUnion{
			anthropic.NewTextBlock(msg.Content),
		}

		// Attach images to the final user message
		if i == len(messages)-1 && msg.Role == "user" {
			for _, img := range images {
				blocks = append(blocks, anthropic.NewImageBlockBase64(
					img.MIMEType,
					base64.StdEncoding.EncodeToString(img.Data),
				))
			}
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(blocks...))
		default:
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(blocks...))
		}
	}

	return claudeMessages, systemText, nil
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getClaudeClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.claudeConfig.Model
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages, request.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(request.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	// Respect the provider rate cap before dispatch
	if err := f.claudeLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, f.claudeTimeout)
	defer cancel()

	resp, err := client.Messages.New(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &ContentResponse{
		Text:     text.String(),
		Provider: ProviderClaude,
		Model:    model,
	}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *ContentRequest, model string) (*ContentResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.geminiConfig.Model
	}

	geminiContents, systemText, err := convertMessagesToGemini(request.Messages, request.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(request.Temperature),
	}

	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}

	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	if err := f.geminiLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, f.geminiTimeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(callCtx, model, geminiContents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	// Iterate candidates until non-empty text is found
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}

	if response.Len() == 0 {
		return nil, fmt.Errorf("no response generated from model")
	}

	return &ContentResponse{
		Text:     response.String(),
		Provider: ProviderGemini,
		Model:    model,
	}, nil
}
