package controller

import (
	"net/http"
	"tender-marketplace-api/internal/service"

	"github.com/labstack/echo"
)

type extractionRoutesHandler struct {
	extractionService service.Extraction
}

func newExtractionRoutesHandler(outer *echo.Group, services *service.Services) *extractionRoutesHandler {
	h := &extractionRoutesHandler{extractionService: services.Extraction}

	outer.POST("/tenders/:tenderId/extractions", h.PostExtraction)
	outer.GET("/tenders/:tenderId/extractions", h.GetTenderExtractions)
	outer.POST("/tenders/:tenderId/scan", h.ScanBid)
	outer.GET("/extractions/:extractionId", h.GetExtraction)

	return h
}

// /tenders/:tenderId/extractions
func (h *extractionRoutesHandler) PostExtraction(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	file, err := formFile(c, uploadField)
	if err != nil {
		return respondError(c, err)
	}

	started, err := h.extractionService.UploadAndExtract(c.Request().Context(), actorFrom(c), tenderId, file, c.FormValue("extractionType"))

	return respond(c, http.StatusAccepted, started, err)
}

// /tenders/:tenderId/extractions
func (h *extractionRoutesHandler) GetTenderExtractions(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	extractions, err := h.extractionService.ListForTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, extractions, err)
}

// /tenders/:tenderId/scan
func (h *extractionRoutesHandler) ScanBid(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	file, err := formFile(c, uploadField)
	if err != nil {
		return respondError(c, err)
	}

	scan, err := h.extractionService.ScanBid(c.Request().Context(), actorFrom(c), tenderId, file)

	return respond(c, http.StatusOK, scan, err)
}

// /extractions/:extractionId
func (h *extractionRoutesHandler) GetExtraction(c echo.Context) error {
	extractionId, err := pathId(c, "extractionId")
	if err != nil {
		return respondError(c, err)
	}

	extraction, err := h.extractionService.GetStatus(c.Request().Context(), actorFrom(c), extractionId)

	return respond(c, http.StatusOK, extraction, err)
}
