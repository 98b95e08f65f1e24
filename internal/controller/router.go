package controller

import (
	"tender-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

func SetupRoutesHandlers(handler *echo.Echo, services *service.Services, validate *validator.Validate) {
	if validate == nil {
		validate = service.NewValidator()
	}

	api := handler.Group("/api")
	newDiagnosticRoutesHandler(api, services)

	authed := api.Group("", requireActor(services.Users))
	newTenderRoutesHandler(authed, services, validate)
	newBidRoutesHandler(authed, services, validate)
	newBillingRoutesHandler(authed, services, validate)
	newExtractionRoutesHandler(authed, services)
	newDocumentRoutesHandler(authed, services, validate)
}
