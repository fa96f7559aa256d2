package handler

import (
	"palmpay/internal/adapter/http/dto"
	"palmpay/internal/adapter/http/middleware"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"
	"palmpay/pkg/response"

	"github.com/gin-gonic/gin"
)

// PalmHandler handles palm enrollment.
type PalmHandler struct {
	enrollSvc ports.EnrollmentService
}

// NewPalmHandler creates a new PalmHandler.
func NewPalmHandler(enrollSvc ports.EnrollmentService) *PalmHandler {
	return &PalmHandler{enrollSvc: enrollSvc}
}

// Enroll handles POST /api/v1/palm/enroll.
func (h *PalmHandler) Enroll(c *gin.Context) {
	identityID, ok := middleware.IdentityID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.enrollSvc.Enroll(c.Request.Context(), identityID, ports.EmbeddingInput{
		Vector:   req.Vector,
		Artifact: req.Artifact,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.IdentityID.String())
	response.Created(c, dto.EnrollResponse{
		IdentityID: result.IdentityID.String(),
		WalletID:   result.WalletID.String(),
		Dimensions: result.Dimensions,
		Replaced:   result.Replaced,
	})
}
