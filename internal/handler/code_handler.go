package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/selekta/portal-backend/internal/model"
	"github.com/selekta/portal-backend/internal/response"
	"github.com/selekta/portal-backend/internal/service"
	"github.com/selekta/portal-backend/internal/validator"
)

// CodeHandler handles invitation code provisioning for admins.
type CodeHandler struct {
	accessService *service.AccessService
	log           zerolog.Logger
}

// NewCodeHandler creates a new CodeHandler.
func NewCodeHandler(accessService *service.AccessService, log zerolog.Logger) *CodeHandler {
	return &CodeHandler{
		accessService: accessService,
		log:           log.With().Str("component", "code_handler").Logger(),
	}
}

// GenerateCodes godoc
// POST /api/v1/admin/codes
// Provisions a batch of random invitation codes.
func (h *CodeHandler) GenerateCodes(c *gin.Context) {
	var req model.GenerateCodesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	codes, inserted, err := h.accessService.GenerateCodes(c.Request.Context(), req.Count, req.Prefix)
	if err != nil {
		h.log.Error().Err(err).Msg("Generate codes failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"codes":    codes,
		"inserted": inserted,
	})
}

// ListCodes godoc
// GET /api/v1/admin/codes
// Returns all invitation codes with usage state.
func (h *CodeHandler) ListCodes(c *gin.Context) {
	codes, err := h.accessService.ListCodes(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List codes failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"codes": codes})
}
