package preferences

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

// Store is the part of the entity store that keeps the scalar settings.
type Store interface {
	Preferences(ctx context.Context) (model.Preferences, error)
	SavePreferences(ctx context.Context, prefs model.Preferences) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/preferences", h.Get)
	r.PUT("/preferences", h.Put)
}

func (h *Handler) Get(c *gin.Context) {
	prefs, err := h.store.Preferences(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}

// Put merges the body over the stored values, so omitted fields keep theirs.
func (h *Handler) Put(c *gin.Context) {
	prefs, err := h.store.Preferences(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if !httputil.BindJSON(c, &prefs) {
		return
	}
	if err := h.store.SavePreferences(c.Request.Context(), prefs); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prefs)
}
