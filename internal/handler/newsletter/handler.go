package newsletter

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/newsletter"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

type Handler struct {
	service *newsletter.Service
}

func NewHandler(service *newsletter.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/newsletter/subscribe", h.Subscribe)
	r.POST("/newsletter/unsubscribe", h.Unsubscribe)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	news := r.Group("/newsletter")
	{
		news.GET("/subscribers", h.ListSubscribers)
		news.GET("/messages", h.ListMessages)
		news.POST("/messages", h.Send)
	}
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	sub, err := h.service.Subscribe(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, sub)
}

func (h *Handler) Unsubscribe(c *gin.Context) {
	var req model.SubscribeRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	if err := h.service.Unsubscribe(c.Request.Context(), req.Email); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"unsubscribed": req.Email})
}

func (h *Handler) ListSubscribers(c *gin.Context) {
	subs, err := h.service.Subscribers(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if subs == nil {
		subs = []model.NewsletterSubscriber{}
	}
	httputil.RespondWithSuccess(c, subs)
}

func (h *Handler) ListMessages(c *gin.Context) {
	msgs, err := h.service.Messages(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if msgs == nil {
		msgs = []model.NewsletterMessage{}
	}
	httputil.RespondWithSuccess(c, msgs)
}

func (h *Handler) Send(c *gin.Context) {
	var req model.SendNewsletterRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	msg, err := h.service.Send(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, msg)
}
