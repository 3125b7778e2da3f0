package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"carebook-server/internal/apperrors"
	"carebook-server/internal/provisioning"
)

// ProvisioningHandler exposes doctor provisioning. Its responses use the
// function body shape {"success": true, "user": ...} or {"error": "..."}
// rather than the API envelope.
type ProvisioningHandler struct {
	Service *provisioning.Service
}

func NewProvisioningHandler(svc *provisioning.Service) *ProvisioningHandler {
	return &ProvisioningHandler{Service: svc}
}

// CreateDoctor provisions a doctor account. The caller is authenticated
// from the Authorization header by the service itself.
func (h *ProvisioningHandler) CreateDoctor(c *gin.Context) {
	ctx := c.Request.Context()
	authorization := c.GetHeader("Authorization")

	var req provisioning.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		// The caller is checked before the body is judged.
		if _, authErr := h.Service.Authorize(ctx, authorization); authErr != nil {
			functionError(c, authErr)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.Service.ProvisionDoctor(ctx, authorization, req)
	if err != nil {
		functionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    res.User,
		"doctor":  res.Doctor,
	})
}

func functionError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("create-doctor failed")
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}
