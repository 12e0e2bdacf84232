package availability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/availability"
	apperrors "github.com/Karan-0412/nabha/pkg/errors"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

type Handler struct {
	service *availability.Service
	now     func() time.Time
	handler.BaseHandler
}

// NewHandler builds the handler. now answers availability queries without ?at.
func NewHandler(service *availability.Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, now: now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	doctors := r.Group("/doctors/:id")
	{
		doctors.GET("/availability", h.GetWindows)
		doctors.POST("/availability", h.AddWindow)
		doctors.PUT("/availability", h.ReplaceWindows)
		doctors.PUT("/availability/:index", h.UpdateWindow)
		doctors.DELETE("/availability/:index", h.RemoveWindow)
		doctors.GET("/available", h.IsAvailable)
	}
}

type availabilityResponse struct {
	DoctorID  string    `json:"doctorId"`
	At        time.Time `json:"at"`
	Available bool      `json:"available"`
}

func (h *Handler) GetWindows(c *gin.Context) {
	ws, err := h.service.Windows(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ws)
}

func (h *Handler) AddWindow(c *gin.Context) {
	var req model.AvailabilityWindowRequest
	if !h.Bind(c, &req) {
		return
	}
	ws, err := h.service.AddWindow(c.Request.Context(), c.Param("id"), req.Window())
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, ws)
}

func (h *Handler) ReplaceWindows(c *gin.Context) {
	var req []model.AvailabilityWindowRequest
	if !h.Bind(c, &req) {
		return
	}
	windows := make(model.AvailabilityWindows, 0, len(req))
	for _, w := range req {
		if w.StartHour == nil || w.EndHour == nil {
			h.Fail(c, apperrors.BadRequest("every window needs startHour and endHour", nil))
			return
		}
		windows = append(windows, w.Window())
	}

	ws, err := h.service.SetWindows(c.Request.Context(), c.Param("id"), windows)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ws)
}

func (h *Handler) UpdateWindow(c *gin.Context) {
	index, ok := h.index(c)
	if !ok {
		return
	}
	var req model.AvailabilityWindowRequest
	if !h.Bind(c, &req) {
		return
	}
	ws, err := h.service.UpdateWindow(c.Request.Context(), c.Param("id"), index, req.Window())
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ws)
}

func (h *Handler) RemoveWindow(c *gin.Context) {
	index, ok := h.index(c)
	if !ok {
		return
	}
	ws, err := h.service.RemoveWindow(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, ws)
}

// IsAvailable answers for ?at (RFC 3339), defaulting to now.
func (h *Handler) IsAvailable(c *gin.Context) {
	at := h.now()
	if raw := c.Query("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.Fail(c, apperrors.BadRequest("at must be an RFC 3339 timestamp", err))
			return
		}
		at = t
	}

	ok, err := h.service.IsDoctorAvailableAt(c.Request.Context(), c.Param("id"), at)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, availabilityResponse{DoctorID: c.Param("id"), At: at, Available: ok})
}

func (h *Handler) index(c *gin.Context) (int, bool) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.Fail(c, apperrors.BadRequest("index must be an integer", err))
		return 0, false
	}
	return i, true
}
