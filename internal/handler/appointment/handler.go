package appointment

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/appointment"
	"github.com/jwalitptl/vet-portal/internal/service/enrichment"
	"github.com/jwalitptl/vet-portal/internal/service/payment"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

type Handler struct {
	service  *appointment.Service
	payments *payment.Service
}

func NewHandler(service *appointment.Service, payments *payment.Service) *Handler {
	return &Handler{service: service, payments: payments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/stats", h.GetStats)
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/payment-proof", h.AttachPaymentProof)
		appointments.POST("/:id/payment-review", h.ReviewPayment)
		appointments.POST("/:id/attend", h.Attend)
		appointments.POST("/:id/no-show", h.MarkNoShow)
		appointments.POST("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filters model.AppointmentFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid query", err))
		return
	}
	criteria, err := enrichment.CriteriaFrom(filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	key, err := enrichment.ParseSortKey(filters.Sort)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	items := h.service.ListEnriched(c.Request.Context(), middleware.Identity(c), criteria, key)
	if items == nil {
		items = []enrichment.Enriched{}
	}
	httputil.RespondWithSuccess(c, items)
}

type statsResponse struct {
	enrichment.Stats
	NotToday int `json:"not_today"`
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := h.service.Stats(c.Request.Context(), middleware.Identity(c))
	httputil.RespondWithSuccess(c, statsResponse{Stats: stats, NotToday: stats.NotToday()})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, item)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.Request(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) AttachPaymentProof(c *gin.Context) {
	var req model.PaymentProofRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.AttachPaymentProof(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.PaymentProof, req.Price)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ReviewPayment(c *gin.Context) {
	var req payment.Decision
	if !httputil.BindJSON(c, &req) {
		return
	}

	apt, err := h.payments.Review(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Attend(c *gin.Context) {
	var req model.ClinicalRecordInput
	if !httputil.BindJSON(c, &req) {
		return
	}

	record, err := h.service.Attend(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, record)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	apt, err := h.service.MarkNoShow(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	var req model.CancelAppointmentRequest
	if !httputil.BindOptionalJSON(c, &req) {
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}
