package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/store"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

var documentKeys = map[string]string{
	"db":            store.KeyDB,
	"notifications": store.KeyNotifications,
	"messages":      store.KeyMessages,
}

type Handler struct {
	store *store.Store
	handler.BaseHandler
}

func NewHandler(st *store.Store) *Handler {
	return &Handler{store: st}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.POST("/reset", h.Reset)
		admin.GET("/documents/:name", h.Document)
	}
}

// Reset replaces the database document with fresh fixture data.
func (h *Handler) Reset(c *gin.Context) {
	db, err := h.store.ResetDB(c.Request.Context())
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, db)
}

// Document returns one persisted document as stored.
func (h *Handler) Document(c *gin.Context) {
	key, ok := documentKeys[c.Param("name")]
	if !ok {
		h.Fail(c, apperrors.NotFound("document", nil))
		return
	}
	raw, err := h.store.RawDocument(c.Request.Context(), key)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusOK, json.RawMessage(raw))
}
