package pet

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vet-portal/internal/middleware"
	"github.com/jwalitptl/vet-portal/internal/model"
	"github.com/jwalitptl/vet-portal/internal/service/pet"
	"github.com/jwalitptl/vet-portal/pkg/httputil"
)

type Handler struct {
	service *pet.Service
}

func NewHandler(service *pet.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	pets := r.Group("/pets")
	{
		pets.GET("", h.ListPets)
		pets.POST("", h.CreatePet)
		pets.PUT("/:id", h.UpdatePet)
		pets.DELETE("/:id", h.DeletePet)
		pets.GET("/:id/records", h.ListRecords)
	}
	r.PUT("/records/:id", h.UpdateRecord)
}

func (h *Handler) ListPets(c *gin.Context) {
	pets, err := h.service.List(c.Request.Context(), middleware.Identity(c), c.Query("owner_id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if pets == nil {
		pets = []model.Pet{}
	}
	httputil.RespondWithSuccess(c, pets)
}

func (h *Handler) CreatePet(c *gin.Context) {
	var req model.CreatePetRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) UpdatePet(c *gin.Context) {
	var req model.UpdatePetRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeletePet(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.Identity(c), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.service.Records(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if records == nil {
		records = []model.ClinicalRecord{}
	}
	httputil.RespondWithSuccess(c, records)
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	var req model.ClinicalRecordInput
	if !httputil.BindJSON(c, &req) {
		return
	}

	record, err := h.service.UpdateRecord(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, record)
}
