package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured. Gemini models
// accept long manuscripts in a single prompt, which the review command
// relies on.
const GoogleDefaultModel = "gemini-2.0-flash"

// googleProvider talks to the Gemini API.
type googleProvider struct {
	baseProvider
	client     *genai.Client
	estimator  SimpleTokenEstimator
	classifier errorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		u, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions.BaseURL = u
	}
	if timeout := ValidateTimeout(config.Timeout); timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}
	return &googleProvider{
		baseProvider: baseProvider{model: model},
		client:       client,
		classifier:   errorClassifier{provider: ProviderGoogle},
	}, nil
}

// DoRequest implements CoreLLM.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, options.Model, contents, generationConfig(options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, ErrEmptyResponse
	}

	tokensIn, tokensOut := 0, 0
	if u := resp.UsageMetadata; u != nil {
		tokensIn, tokensOut = int(u.PromptTokenCount), int(u.CandidatesTokenCount)
	}
	if tokensIn <= 0 {
		tokensIn = p.estimator.EstimateTokens(prompt)
	}
	if tokensOut <= 0 {
		tokensOut = p.estimator.EstimateTokens(content)
	}
	return content, tokensIn, tokensOut, nil
}

// generationConfig maps request options onto Gemini's config. The system
// prompt travels as a system instruction.
func generationConfig(options RequestOptions) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(min(options.MaxTokens, math.MaxInt32)),
	}
	if options.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(options.System, genai.RoleUser)
	}
	if options.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*options.Temperature))
	}
	if options.TopP != nil {
		gc.TopP = genai.Ptr(float32(*options.TopP))
	}
	if topK, ok := options.Extra["top_k"].(int); ok {
		gc.TopK = genai.Ptr(float32(min(max(topK, 1), 40)))
	}
	if jsonMode, _ := options.Extra["json_mode"].(bool); jsonMode {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

func (p *googleProvider) handleError(err error) error {
	if apiErr, ok := asAPIError(err); ok {
		if isSafetyBlock(apiErr.Message, apiErr.Status) {
			return NewProviderError(ProviderGoogle, ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}
		return p.classifier.classifyHTTP(apiErr.Code, apiErr.Message, err)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" && len(gErr.Errors) > 0 {
			msg = gErr.Errors[0].Message
		}
		reason := ""
		if len(gErr.Errors) > 0 {
			reason = gErr.Errors[0].Reason
		}
		if isSafetyBlock(msg, reason) {
			return NewProviderError(ProviderGoogle, ErrorTypeContentPolicy, gErr.Code,
				"request blocked by safety filters", err)
		}
		return p.classifier.classifyHTTP(gErr.Code, msg, err)
	}
	return p.classifier.classify(err)
}

func isSafetyBlock(message, reason string) bool {
	if reason == "SAFETY" || reason == "BLOCKED" {
		return true
	}
	lower := strings.ToLower(message)
	return strings.Contains(lower, "safety") || strings.Contains(lower, "blocked")
}

// asAPIError finds a genai.APIError in err, by value or by pointer.
func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
