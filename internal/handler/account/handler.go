package account

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/account"
	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

type Handler struct {
	service *account.Service
}

func NewHandler(service *account.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts")
	{
		accounts.GET("", h.ListAccounts)
		accounts.GET("/:id", h.GetAccount)
		accounts.GET("/:id/status", h.GetStatus)
		accounts.PUT("/:id/profile", h.UpdateProfile)
		accounts.DELETE("/:id", h.DeleteAccount)
	}
}

// personID resolves the :id parameter. "me" is the current user.
func personID(c *gin.Context) string {
	id := c.Param("id")
	if id == "me" {
		return middleware.Identity(c).PersonID
	}
	return id
}

func (h *Handler) ListAccounts(c *gin.Context) {
	role := model.Role(c.Query("role"))
	if role != "" && !role.Valid() {
		httputil.RespondWithError(c, apperrors.Validation("role", "role is not a known role"))
		return
	}

	accounts, err := h.service.List(c.Request.Context(), middleware.Identity(c), role)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if accounts == nil {
		accounts = []account.Summary{}
	}
	httputil.RespondWithSuccess(c, accounts)
}

func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.service.Get(c.Request.Context(), middleware.Identity(c), personID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, acc)
}

func (h *Handler) GetStatus(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), middleware.Identity(c), personID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"account_status": status})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	acc, err := h.service.UpdateProfile(c.Request.Context(), middleware.Identity(c), personID(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, acc)
}

func (h *Handler) DeleteAccount(c *gin.Context) {
	id := personID(c)
	if err := h.service.Delete(c.Request.Context(), middleware.Identity(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}
