package call

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/middleware"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/call"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

type Handler struct {
	service *call.Service
	handler.BaseHandler
}

func NewHandler(service *call.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	calls := r.Group("/calls")
	{
		calls.GET("", h.ListCalls)
		calls.POST("", h.StartCall)
		calls.POST("/ring", h.RingCall)
		calls.GET("/current", h.CurrentCall)
		calls.GET("/history", middleware.RequireIdentity(), h.CallHistory)
		calls.POST("/:id/accept", h.transition(h.service.Accept))
		calls.POST("/:id/decline", h.transition(h.service.Decline))
		calls.POST("/:id/end", h.transition(h.service.End))
	}
}

func (h *Handler) ListCalls(c *gin.Context) {
	calls, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, calls)
}

// StartCall opens an already connected call.
func (h *Handler) StartCall(c *gin.Context) {
	var req model.StartCallRequest
	if !h.Bind(c, &req) {
		return
	}
	call, err := h.service.StartNow(c.Request.Context(), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, call)
}

// RingCall rings the patient.
func (h *Handler) RingCall(c *gin.Context) {
	var req model.StartCallRequest
	if !h.Bind(c, &req) {
		return
	}
	call, err := h.service.CreateRinging(c.Request.Context(), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, call)
}

// CurrentCall returns the patient's ringing or active call, or null. The
// patient comes from ?patient_id or from a patient caller.
func (h *Handler) CurrentCall(c *gin.Context) {
	patientID := c.Query("patient_id")
	if patientID == "" {
		if id, ok := h.Caller(c); ok && id.Role == model.RolePatient {
			patientID = id.UserID
		}
	}
	if patientID == "" {
		h.Fail(c, apperrors.BadRequest("patient_id is required", nil))
		return
	}

	call, err := h.service.ActiveOrRingingForPatient(c.Request.Context(), patientID)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, call)
}

func (h *Handler) CallHistory(c *gin.Context) {
	id, _ := h.Caller(c)
	calls, err := h.service.HistoryForIdentity(c.Request.Context(), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, calls)
}

func (h *Handler) transition(op func(ctx context.Context, id string) (*model.Call, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		call, err := op(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.Fail(c, err)
			return
		}
		httputil.RespondWithSuccess(c, call)
	}
}
