package admin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

// Reloader re-reads every collection from the durable layer.
type Reloader interface {
	Reload(ctx context.Context) error
}

type Handler struct {
	store Reloader
}

func NewHandler(store Reloader) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin", middleware.RequireRole(model.RoleAdministrator))
	admin.POST("/reload", h.Reload)
}

func (h *Handler) Reload(c *gin.Context) {
	if err := h.store.Reload(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"reloaded": true})
}
