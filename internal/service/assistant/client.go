// Package assistant talks to an OpenAI-compatible chat completion API.
// Every call degrades to canned localized text when the provider fails.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/pkg/circuitbreaker"
	"github.com/Karan-0412/nabha/pkg/logger"
	"github.com/Karan-0412/nabha/pkg/metrics"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultRelayModel  = "openai/gpt-4o-mini"
	defaultTitle       = "Nabha Healthcare App"
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// DefaultModels is tried in order until one answers.
var DefaultModels = []string{
	"meta-llama/llama-3.1-8b-instruct:free",
	"microsoft/phi-3-mini-128k-instruct:free",
	"google/gemma-2-9b-it:free",
	"mistralai/mistral-7b-instruct:free",
	"openai/gpt-3.5-turbo",
}

var ErrNoModels = errors.New("all AI models failed")

type Config struct {
	BaseURL    string
	APIKey     string
	Referer    string
	Title      string
	Models     []string
	RelayModel string
	Timeout    time.Duration
	// RequestsPerSecond limits outbound calls; 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	cfg     Config
	api     *openai.Client
	cb      *circuitbreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewClient(cfg Config, log *logger.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.RelayModel == "" {
		cfg.RelayModel = defaultRelayModel
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	if m == nil {
		m = metrics.New("telemed")
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = cfg.BaseURL
	apiConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			title:   cfg.Title,
			referer: cfg.Referer,
		},
	}

	log = log.WithFields(map[string]interface{}{"component": "assistant"})
	return &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(apiConfig),
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "ai-provider",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			OnStateChange: func(name, from, to string) {
				log.Warn("Circuit breaker state changed", "breaker", name, "from", from, "to", to)
			},
		}),
		limiter: limiter,
		logger:  log,
		metrics: m,
	}
}

// attributionTransport adds the OpenRouter app attribution headers.
type attributionTransport struct {
	base    http.RoundTripper
	title   string
	referer string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Title", t.title)
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	return t.base.RoundTrip(req)
}

func system(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: text}
}

func user(text string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
}

// ChatResponse answers a free-text health question.
func (c *Client) ChatResponse(ctx context.Context, message, background string, lang model.Language) string {
	lang = normalizeLanguage(lang)
	prompt := "User: " + message
	if background != "" {
		prompt = "Context: " + background + "\n\n" + prompt
	}

	reply, err := c.completeWithFallback(ctx, []openai.ChatCompletionMessage{
		system(chatPrompt(lang)),
		user(prompt),
	})
	if err != nil {
		c.logger.Warn("Chat falling back to canned reply", "error", err.Error())
		return FallbackChat(message, lang)
	}
	return reply
}

// AnalyzeSymptoms asks for a structured assessment of free-text symptoms.
func (c *Client) AnalyzeSymptoms(ctx context.Context, symptoms string, lang model.Language) model.SymptomAnalysis {
	lang = normalizeLanguage(lang)
	reply, err := c.completeWithFallback(ctx, []openai.ChatCompletionMessage{
		system(symptomPrompt(lang)),
		user("Patient symptoms: " + symptoms),
	})
	if err != nil {
		c.logger.Warn("Symptom analysis falling back", "error", err.Error())
		return FallbackSymptoms(lang)
	}

	var analysis model.SymptomAnalysis
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &analysis); err != nil || len(analysis.PossibleConditions) == 0 {
		c.logger.Warn("Unparseable symptom analysis, falling back")
		return FallbackSymptoms(lang)
	}
	return analysis
}

// AnalyzeImage asks for an assessment of a base64 data URL image.
func (c *Client) AnalyzeImage(ctx context.Context, image, background string, lang model.Language) model.ImageAnalysis {
	lang = normalizeLanguage(lang)
	text := "Analyze this medical image:"
	if background != "" {
		text += " Context: " + background
	}

	reply, err := c.completeWithFallback(ctx, []openai.ChatCompletionMessage{
		system(imagePrompt(lang)),
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: text},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: image}},
			},
		},
	})
	if err != nil {
		c.logger.Warn("Image analysis falling back", "error", err.Error())
		return FallbackImage(lang)
	}

	var analysis model.ImageAnalysis
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &analysis); err != nil || analysis.Description == "" {
		c.logger.Warn("Unparseable image analysis, falling back")
		return FallbackImage(lang)
	}
	return analysis
}

var listPrefix = regexp.MustCompile(`^\s*(\d+[.)]|[-*•])\s*`)

// HealthRecommendations returns one recommendation per line of the reply.
func (c *Client) HealthRecommendations(ctx context.Context, age int, gender string, conditions []string) []string {
	existing := "None"
	if len(conditions) > 0 {
		existing = strings.Join(conditions, ", ")
	}

	reply, err := c.completeWithFallback(ctx, []openai.ChatCompletionMessage{
		system(fmt.Sprintf(
			"Generate personalized health recommendations for a %d-year-old %s in rural India. "+
				"Consider common rural health challenges and provide practical, actionable advice.", age, gender)),
		user(fmt.Sprintf("Age: %d, Gender: %s, Existing conditions: %s. Provide 5 key recommendations.", age, gender, existing)),
	})
	if err != nil {
		c.logger.Warn("Recommendations falling back", "error", err.Error())
		return FallbackRecommendations()
	}

	var out []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return FallbackRecommendations()
	}
	return out
}

// TestConnection reports whether any model answers a trivial prompt.
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.completeWithFallback(ctx, []openai.ChatCompletionMessage{
		system(chatPrompt(model.LanguageEnglish)),
		user("Hello, this is a test message about my health."),
	})
	if err != nil {
		c.logger.Warn("AI connection test failed", "error", err.Error())
	}
	return err == nil
}

// Relay forwards message as a single user turn to the relay model. Unlike the
// other calls it reports failures to the caller.
func (c *Client) Relay(ctx context.Context, message string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.RelayModel,
		Messages: []openai.ChatCompletionMessage{user(message)},
	})
}

func (c *Client) completeWithFallback(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	var lastErr error
	for _, m := range c.cfg.Models {
		reply, err := c.complete(ctx, openai.ChatCompletionRequest{
			Model:       m,
			Messages:    messages,
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		})
		if err == nil {
			return reply, nil
		}
		lastErr = err
		c.logger.Debug("Model failed, trying next", "model", m, "error", err.Error())

		if errors.Is(err, circuitbreaker.ErrOpen) || ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", ErrNoModels, lastErr)
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	var reply string
	err := c.cb.Execute(func() error {
		var err error
		reply, err = c.do(ctx, req)
		return err
	})
	c.metrics.AssistantLatency.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	c.metrics.AssistantRequests.WithLabelValues(req.Model, outcome).Inc()
	return reply, err
}

func (c *Client) do(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", providerError(req.Model, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "No response generated", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// providerError keeps the upstream status code in the message.
func providerError(model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("API request failed: %d %s - %s", apiErr.HTTPStatusCode, http.StatusText(apiErr.HTTPStatusCode), apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("API request failed: %d %s: %w", reqErr.HTTPStatusCode, http.StatusText(reqErr.HTTPStatusCode), reqErr)
	}
	return fmt.Errorf("request to %s failed: %w", model, err)
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON returns the JSON object inside a fenced block, or the span from
// the first '{' to the last '}', or s unchanged.
func ExtractJSON(s string) string {
	if m := fenced.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return strings.TrimSpace(s)
}

func normalizeLanguage(lang model.Language) model.Language {
	if lang == model.LanguageHindi {
		return lang
	}
	return model.LanguageEnglish
}

func languageName(lang model.Language) string {
	if lang == model.LanguageHindi {
		return "Hindi"
	}
	return "English"
}

func chatPrompt(lang model.Language) string {
	return `You are Dr. AI, a medical AI assistant for rural healthcare in India.
You ONLY respond to medical and health-related questions in ` + languageName(lang) + `.

STRICT GUIDELINES:
- ONLY answer medical, health, and wellness questions
- Always recommend consulting a doctor for serious symptoms
- Be culturally sensitive to rural Indian healthcare needs
- Provide practical, actionable medical advice in simple, clear language
- Never provide specific medical diagnoses
- For emergencies, always recommend immediate medical attention`
}

func symptomPrompt(lang model.Language) string {
	return `You are a medical AI assistant for rural healthcare in India. Analyze the patient's symptoms and provide a structured response in ` + languageName(lang) + `.

Respond with a JSON object containing:
- possibleConditions: array of possible medical conditions
- severity: "low", "medium", or "high"
- recommendations: array of immediate care recommendations
- shouldSeeDoctor: boolean
- urgency: "immediate", "within_24h", "within_week", or "routine"

Be conservative in your assessment. Always recommend seeing a doctor for serious symptoms.`
}

func imagePrompt(lang model.Language) string {
	return `You are a medical AI assistant for rural healthcare in India. Analyze the provided image and identify potential health issues.
Provide a structured response in ` + languageName(lang) + `.

Respond with a JSON object containing:
- description: string describing what you see
- possibleConditions: array of possible conditions
- confidence: number between 0 and 1
- recommendations: array of recommendations`
}
