package controllers

import (
	"net/http"

	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// EntitlementController handles license lookups for the UI.
type EntitlementController struct {
	entitlementService services.EntitlementService
}

// NewEntitlementController creates a new EntitlementController.
func NewEntitlementController(svc services.EntitlementService) *EntitlementController {
	return &EntitlementController{entitlementService: svc}
}

// CheckEntitlements handles GET /api/entitlements/check
func (ec *EntitlementController) CheckEntitlements(ctx *gin.Context) {
	granteeID := ctx.Query("granteeId")

	info, svcErr := ec.entitlementService.CheckEntitlements(ctx.Request.Context(), granteeID, ctx.Query("feature"))
	if svcErr != nil {
		if svcErr.Kind == services.KindValidation {
			writeServiceError(ctx, svcErr)
			return
		}
		ctx.JSON(svcErr.StatusCode, models.LicenseInfo{
			Status:       models.LicenseError,
			GranteeID:    granteeID,
			Entitlements: []models.Entitlement{},
			Error:        svcErr.Message,
		})
		return
	}

	ctx.JSON(http.StatusOK, info)
}

// UserStatus handles GET /api/user/status
func (ec *EntitlementController) UserStatus(ctx *gin.Context) {
	status, svcErr := ec.entitlementService.UserStatus(ctx.Request.Context(), ctx.Query("granteeId"))
	if svcErr != nil {
		writeServiceError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, status)
}
