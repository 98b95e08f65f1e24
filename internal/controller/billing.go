package controller

import (
	"net/http"
	"tender-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

type billingRoutesHandler struct {
	ledgerService service.Ledger
	validate      *validator.Validate
}

func newBillingRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate) *billingRoutesHandler {
	h := &billingRoutesHandler{ledgerService: services.Ledger, validate: v}

	outer.GET("/billing", h.GetBilling)
	outer.POST("/billing/purchase", h.PurchaseCredits)

	return h
}

// /billing
func (h *billingRoutesHandler) GetBilling(c echo.Context) error {
	billing, err := h.ledgerService.GetBilling(c.Request().Context(), actorFrom(c))

	return respond(c, http.StatusOK, billing, err)
}

type purchaseInput struct {
	Pack string `json:"pack" validate:"required,max=50"`
}

// /billing/purchase
func (h *billingRoutesHandler) PurchaseCredits(c echo.Context) error {
	var input purchaseInput
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	purchase, err := h.ledgerService.PurchaseCredits(c.Request().Context(), actorFrom(c), input.Pack)

	return respond(c, http.StatusOK, purchase, err)
}
