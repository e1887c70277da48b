package controllers

import (
	"net/http"

	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// CatalogController serves the plans and products shown on the pricing page.
type CatalogController struct {
	catalogService services.CatalogService
}

// NewCatalogController creates a new CatalogController.
func NewCatalogController(svc services.CatalogService) *CatalogController {
	return &CatalogController{catalogService: svc}
}

// ListPlans handles GET /api/plans
func (cc *CatalogController) ListPlans(ctx *gin.Context) {
	plans, svcErr := cc.catalogService.ListPlans(ctx.Request.Context())
	if svcErr != nil {
		writeServiceError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"plans": plans})
}

// ListProducts handles GET /api/products
func (cc *CatalogController) ListProducts(ctx *gin.Context) {
	products, svcErr := cc.catalogService.ListProducts(ctx.Request.Context())
	if svcErr != nil {
		writeServiceError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"products": products})
}
