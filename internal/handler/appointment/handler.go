package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Karan-0412/nabha/internal/handler"
	"github.com/Karan-0412/nabha/internal/middleware"
	"github.com/Karan-0412/nabha/internal/model"
	"github.com/Karan-0412/nabha/internal/service/appointment"
	"github.com/Karan-0412/nabha/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
	handler.BaseHandler
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/upcoming", middleware.RequireIdentity(), h.ListUpcoming)
		appointments.POST("/:id/accept", h.AcceptAppointment)
		appointments.POST("/:id/reject", h.RejectAppointment)
	}
}

// CreateAppointment schedules an appointment inside the doctor's availability.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !h.Bind(c, &req) {
		return
	}

	apt, err := h.service.ScheduleChecked(c.Request.Context(), &req)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, apt)
}

// ListAppointments returns the caller's appointments, or every appointment
// for anonymous callers.
func (h *Handler) ListAppointments(c *gin.Context) {
	var (
		items []model.Appointment
		err   error
	)
	if id, ok := h.Caller(c); ok {
		items, err = h.service.ListForIdentity(c.Request.Context(), id)
	} else {
		items, err = h.service.ListAll(c.Request.Context())
	}
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	id, _ := h.Caller(c)
	items, err := h.service.UpcomingForIdentity(c.Request.Context(), id)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) AcceptAppointment(c *gin.Context) {
	apt, err := h.service.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) RejectAppointment(c *gin.Context) {
	var req model.RejectAppointmentRequest
	// the reason is optional, so is the body
	if c.Request.ContentLength > 0 && !h.Bind(c, &req) {
		return
	}

	apt, err := h.service.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.Fail(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}
