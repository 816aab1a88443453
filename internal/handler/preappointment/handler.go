package preappointment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/intake"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

type Handler struct {
	service *intake.Service
}

func NewHandler(service *intake.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes exposes submission to visitors without an account.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/pre-appointments", h.Submit)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pre := r.Group("/pre-appointments")
	{
		pre.GET("", h.List)
		pre.POST("/:id/decision", h.Decide)
		pre.POST("/:id/promote", h.Promote)
		pre.POST("/:id/account", h.ProvisionAccount)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.SubmitPreAppointmentRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	pre, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, pre)
}

func (h *Handler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if items == nil {
		items = []model.PreAppointment{}
	}
	httputil.RespondWithSuccess(c, items)
}

func (h *Handler) Decide(c *gin.Context) {
	var req intake.Decision
	if !httputil.BindJSON(c, &req) {
		return
	}

	pre, err := h.service.Process(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, pre)
}

func (h *Handler) Promote(c *gin.Context) {
	var req intake.PromoteInput
	if !httputil.BindOptionalJSON(c, &req) {
		return
	}

	apt, err := h.service.Promote(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) ProvisionAccount(c *gin.Context) {
	person, err := h.service.ProvisionAccount(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, person)
}
