package assistant

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/message"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

// RelayFailureReply is what the relay answers when the provider fails.
const RelayFailureReply = "⚠️ Oops! Something went wrong with AI."

// Assistant is the AI surface the handlers need.
type Assistant interface {
	ChatResponse(ctx context.Context, message, background string, lang model.Language) string
	AnalyzeSymptoms(ctx context.Context, symptoms string, lang model.Language) model.SymptomAnalysis
	AnalyzeImage(ctx context.Context, image, background string, lang model.Language) model.ImageAnalysis
	HealthRecommendations(ctx context.Context, age int, gender string, conditions []string) []string
	TestConnection(ctx context.Context) bool
	Relay(ctx context.Context, message string) (string, error)
}

type Handler struct {
	assistant Assistant
	messages  *message.Service
	handler.BaseHandler
}

// NewHandler builds the handler. messages may be nil to skip storing chats.
func NewHandler(assistant Assistant, messages *message.Service) *Handler {
	return &Handler{assistant: assistant, messages: messages}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ai := r.Group("/assistant")
	{
		ai.POST("/chat", h.Chat)
		ai.POST("/symptoms", h.AnalyzeSymptoms)
		ai.POST("/image", h.AnalyzeImage)
		ai.POST("/recommendations", h.Recommendations)
		ai.GET("/status", h.Status)
	}
}

// RegisterRelay mounts the minimal POST /api/chat relay.
func (h *Handler) RegisterRelay(r gin.IRoutes) {
	r.POST("/api/chat", h.Relay)
}

func (h *Handler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	reply := h.assistant.ChatResponse(c.Request.Context(), req.Message, req.Context, req.Language)
	if id, ok := h.Caller(c); ok {
		h.record(c.Request.Context(), id, req.Message, reply)
	}
	httputil.RespondWithSuccess(c, gin.H{"reply": reply})
}

// record keeps the exchange in the caller's assistant room. Failures only get logged.
func (h *Handler) record(ctx context.Context, id model.Identity, question, reply string) {
	if h.messages == nil {
		return
	}
	roomID := model.AssistantRoomID(id.UserID)
	if _, err := h.messages.EnsureRoom(ctx, roomID, "AI Assistant", model.RoomTypeAI); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to ensure assistant room")
		return
	}
	if _, err := h.messages.AddMessage(ctx, roomID, model.SenderUser, question); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to store chat message")
		return
	}
	if _, err := h.messages.AddMessage(ctx, roomID, model.SenderAssistant, reply); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to store assistant reply")
	}
}

func (h *Handler) AnalyzeSymptoms(c *gin.Context) {
	var req model.SymptomRequest
	if !h.BindAndValidate(c, &req) {
		return
	}
	httputil.RespondWithSuccess(c, h.assistant.AnalyzeSymptoms(c.Request.Context(), req.Symptoms, req.Language))
}

func (h *Handler) AnalyzeImage(c *gin.Context) {
	var req model.ImageRequest
	if !h.BindAndValidate(c, &req) {
		return
	}
	httputil.RespondWithSuccess(c, h.assistant.AnalyzeImage(c.Request.Context(), req.Image, req.Context, req.Language))
}

func (h *Handler) Recommendations(c *gin.Context) {
	var req model.RecommendationRequest
	if !h.BindAndValidate(c, &req) {
		return
	}
	httputil.RespondWithSuccess(c, h.assistant.HealthRecommendations(c.Request.Context(), req.Age, req.Gender, req.Conditions))
}

func (h *Handler) Status(c *gin.Context) {
	httputil.RespondWithSuccess(c, gin.H{"connected": h.assistant.TestConnection(c.Request.Context())})
}

// Relay answers {reply} or a 500 carrying the fixed failure reply and the error.
func (h *Handler) Relay(c *gin.Context) {
	var req model.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, model.RelayResponse{Reply: RelayFailureReply, Error: "message is required"})
		return
	}

	reply, err := h.assistant.Relay(c.Request.Context(), req.Message)
	if err != nil {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("AI relay failed")
		c.JSON(http.StatusInternalServerError, model.RelayResponse{Reply: RelayFailureReply, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, model.RelayResponse{Reply: reply})
}
