package room

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/message"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

type Handler struct {
	service *message.Service
	handler.BaseHandler
}

func NewHandler(service *message.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.GET("", h.ListRooms)
		rooms.POST("", h.CreateRoom)
		rooms.GET("/:id/messages", h.ListMessages)
		rooms.POST("/:id/messages", h.SendMessage)
	}
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.service.Rooms(c.Request.Context())
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rooms)
}

// CreateRoom is idempotent: an existing room id returns the stored room.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req model.CreateRoomRequest
	if !h.Bind(c, &req) {
		return
	}
	room, err := h.service.EnsureRoom(c.Request.Context(), req.ID, req.Name, req.Type)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, room)
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.service.MessagesForRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if !h.Bind(c, &req) {
		return
	}
	msg, err := h.service.AddMessage(c.Request.Context(), c.Param("id"), req.Sender, req.Text)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, msg)
}
