package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/notification"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

type Handler struct {
	service *notification.Service
	handler.BaseHandler
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/:id/read", h.MarkRead)
	}
}

// audience resolves whose notifications a request is about: the caller when
// identified, otherwise ?recipient and ?user_id.
func (h *Handler) audience(c *gin.Context) (model.Recipient, string, bool) {
	if id, ok := h.Caller(c); ok {
		return model.Recipient(id.Role), id.UserID, true
	}

	recipient := model.Recipient(c.DefaultQuery("recipient", string(model.RecipientAny)))
	switch recipient {
	case model.RecipientAny, model.RecipientAll, model.RecipientPatient, model.RecipientDoctor:
	default:
		h.Fail(c, apperrors.BadRequest("recipient must be one of patient, doctor, all, any", nil))
		return "", "", false
	}
	return recipient, c.Query("user_id"), true
}

func (h *Handler) ListNotifications(c *gin.Context) {
	recipient, userID, ok := h.audience(c)
	if !ok {
		return
	}
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		h.Fail(c, apperrors.BadRequest("invalid pagination", err))
		return
	}

	items, err := h.service.List(c.Request.Context(), recipient, userID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	if page.PageSize <= 0 {
		httputil.RespondWithSuccess(c, items)
		return
	}
	start, end := page.Bounds(len(items))
	httputil.RespondWithPagination(c, items[start:end], page.Page, page.PageSize, len(items))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	recipient, userID, ok := h.audience(c)
	if !ok {
		return
	}
	n, err := h.service.UnreadCount(c.Request.Context(), recipient, userID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"unread": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": c.Param("id"), "read": true})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	recipient, userID, ok := h.audience(c)
	if !ok {
		return
	}
	n, err := h.service.MarkAllRead(c.Request.Context(), recipient, userID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"updated": n})
}
