package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karan-0412/nabha/internal/model"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	headers  []http.Header
	// fail lists models that answer with a 500.
	fail  map[string]bool
	reply string
}

func (f *fakeProvider) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.headers = append(f.headers, r.Header.Clone())
		f.mu.Unlock()

		if f.fail[req.Model] {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": f.reply}},
			},
		})
	}
}

func newTestClient(t *testing.T, f *fakeProvider, models ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Referer: "http://localhost:3000",
		Models:  models,
	}, nil, nil)
}

func TestChatResponse_SendsHeadersAndParameters(t *testing.T) {
	f := &fakeProvider{reply: "Drink fluids and rest."}
	c := newTestClient(t, f, "model-a")

	reply := c.ChatResponse(context.Background(), "I have a fever", "", model.LanguageEnglish)
	assert.Equal(t, "Drink fluids and rest.", reply)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "model-a", req.Model)
	assert.Equal(t, float32(0.7), req.Temperature)
	assert.Equal(t, 1000, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "User: I have a fever", req.Messages[1].Content)

	h := f.headers[0]
	assert.Equal(t, "Bearer test-key", h.Get("Authorization"))
	assert.Equal(t, "http://localhost:3000", h.Get("HTTP-Referer"))
	assert.Equal(t, "Nabha Healthcare App", h.Get("X-Title"))
}

func TestChatResponse_FallsThroughModels(t *testing.T) {
	f := &fakeProvider{reply: "ok", fail: map[string]bool{"model-a": true}}
	c := newTestClient(t, f, "model-a", "model-b")

	reply := c.ChatResponse(context.Background(), "headache", "", model.LanguageEnglish)
	assert.Equal(t, "ok", reply)

	require.Len(t, f.requests, 2)
	assert.Equal(t, "model-a", f.requests[0].Model)
	assert.Equal(t, "model-b", f.requests[1].Model)
}

func TestChatResponse_CannedReplyWhenAllModelsFail(t *testing.T) {
	f := &fakeProvider{fail: map[string]bool{"model-a": true, "model-b": true}}
	c := newTestClient(t, f, "model-a", "model-b")

	assert.Equal(t, feverReply.en, c.ChatResponse(context.Background(), "I have a high fever", "", model.LanguageEnglish))
	assert.Equal(t, painReply.hi, c.ChatResponse(context.Background(), "my back pain", "", model.LanguageHindi))
	assert.False(t, c.TestConnection(context.Background()))
}

func TestAnalyzeSymptoms(t *testing.T) {
	f := &fakeProvider{reply: "Here you go:\n```json\n{\"possibleConditions\":[\"Flu\"],\"severity\":\"low\",\"recommendations\":[\"Rest\"],\"shouldSeeDoctor\":false,\"urgency\":\"routine\"}\n```"}
	c := newTestClient(t, f, "model-a")

	got := c.AnalyzeSymptoms(context.Background(), "runny nose", model.LanguageEnglish)
	assert.Equal(t, []string{"Flu"}, got.PossibleConditions)
	assert.Equal(t, model.SeverityLow, got.Severity)
	assert.False(t, got.ShouldSeeDoctor)
	assert.Equal(t, "routine", got.Urgency)
}

func TestAnalyzeSymptoms_UnparseableReplyFallsBack(t *testing.T) {
	f := &fakeProvider{reply: "I cannot answer that"}
	c := newTestClient(t, f, "model-a")

	got := c.AnalyzeSymptoms(context.Background(), "runny nose", model.LanguageHindi)
	assert.Equal(t, FallbackSymptoms(model.LanguageHindi), got)
}

func TestAnalyzeImage_SendsImagePart(t *testing.T) {
	f := &fakeProvider{reply: `{"description":"A rash","possibleConditions":["Eczema"],"confidence":0.6,"recommendations":["See a dermatologist"]}`}
	c := newTestClient(t, f, "model-a")

	got := c.AnalyzeImage(context.Background(), "data:image/png;base64,AAAA", "itchy", model.LanguageEnglish)
	assert.Equal(t, "A rash", got.Description)
	assert.Equal(t, 0.6, got.Confidence)

	require.Len(t, f.requests, 1)
	parts := f.requests[0].Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, openai.ChatMessagePartTypeText, parts[0].Type)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
}

func TestHealthRecommendations_StripsNumbering(t *testing.T) {
	f := &fakeProvider{reply: "1. Drink water\n2) Walk daily\n\n- Sleep well"}
	c := newTestClient(t, f, "model-a")

	got := c.HealthRecommendations(context.Background(), 40, "female", nil)
	assert.Equal(t, []string{"Drink water", "Walk daily", "Sleep well"}, got)
}

func TestHealthRecommendations_Fallback(t *testing.T) {
	f := &fakeProvider{fail: map[string]bool{"model-a": true}}
	c := newTestClient(t, f, "model-a")

	assert.Equal(t, FallbackRecommendations(), c.HealthRecommendations(context.Background(), 40, "male", []string{"diabetes"}))
}

func TestRelay(t *testing.T) {
	f := &fakeProvider{reply: "pong"}
	c := newTestClient(t, f, "model-a")

	reply, err := c.Relay(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "openai/gpt-4o-mini", f.requests[0].Model)
	assert.Zero(t, f.requests[0].MaxTokens)
	require.Len(t, f.requests[0].Messages, 1)
	assert.Equal(t, "user", f.requests[0].Messages[0].Role)
}

func TestRelay_ProviderJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, nil, nil)

	_, err := c.Relay(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestRelay_SurfacesProviderError(t *testing.T) {
	f := &fakeProvider{fail: map[string]bool{"openai/gpt-4o-mini": true}}
	c := newTestClient(t, f, "model-a")

	_, err := c.Relay(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestFallbackChat_NonMedical(t *testing.T) {
	assert.Equal(t, notMedical.en, FallbackChat("who won the match", model.LanguageEnglish))
	assert.Equal(t, coughReply.en, FallbackChat("bad cough", model.LanguageEnglish))
	assert.Equal(t, defaultReply.en, FallbackChat("my heart", model.LanguageEnglish))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSON(`sure! {"a":{"b":2}} hope that helps`))
	assert.Equal(t, "plain", ExtractJSON("  plain "))
}
