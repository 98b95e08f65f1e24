package controller

import (
	"mime"
	"net/http"
	"strconv"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

type documentRoutesHandler struct {
	documentService service.Document
	validate        *validator.Validate
}

func newDocumentRoutesHandler(outer *echo.Group, services *service.Services, validate *validator.Validate) *documentRoutesHandler {
	h := &documentRoutesHandler{documentService: services.Document, validate: validate}

	outer.GET("/tenders/:tenderId/documents", h.GetTenderDocuments)
	outer.GET("/documents", h.GetDocuments)
	outer.GET("/documents/:documentId", h.GetDocument)
	outer.GET("/documents/:documentId/download", h.DownloadDocument)
	outer.DELETE("/documents/:documentId", h.DeleteDocument)
	outer.GET("/contractor/documents", h.GetDocumentHistory)

	return h
}

// /tenders/:tenderId/documents
func (h *documentRoutesHandler) GetTenderDocuments(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	docs, err := h.documentService.ListForTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, docs, err)
}

type getDocumentsInput struct {
	Limit  int32 `json:"limit" query:"limit" validate:"gte=0,lte=100"`
	Offset int32 `json:"offset" query:"offset" validate:"gte=0"`
}

// /documents
func (h *documentRoutesHandler) GetDocuments(c echo.Context) error {
	input := getDocumentsInput{Limit: defaultLimit, Offset: defaultOffset}
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	docs, err := h.documentService.ListAll(c.Request().Context(), actorFrom(c), pg)

	return respond(c, http.StatusOK, docs, err)
}

// /documents/:documentId
func (h *documentRoutesHandler) GetDocument(c echo.Context) error {
	documentId, err := pathId(c, "documentId")
	if err != nil {
		return respondError(c, err)
	}

	doc, err := h.documentService.GetDocument(c.Request().Context(), actorFrom(c), documentId)

	return respond(c, http.StatusOK, doc, err)
}

// /documents/:documentId/download
func (h *documentRoutesHandler) DownloadDocument(c echo.Context) error {
	documentId, err := pathId(c, "documentId")
	if err != nil {
		return respondError(c, err)
	}

	download, err := h.documentService.Download(c.Request().Context(), actorFrom(c), documentId)
	if err != nil {
		return respondError(c, err)
	}
	defer download.Body.Close()

	contentType := download.MimeType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": download.FileName}))
	if download.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(download.Size, 10))
	}

	return c.Stream(http.StatusOK, contentType, download.Body)
}

// /documents/:documentId
func (h *documentRoutesHandler) DeleteDocument(c echo.Context) error {
	documentId, err := pathId(c, "documentId")
	if err != nil {
		return respondError(c, err)
	}

	err = h.documentService.Delete(c.Request().Context(), actorFrom(c), documentId)

	return respond(c, http.StatusOK, messageResponse{"Document deleted"}, err)
}

// /contractor/documents
func (h *documentRoutesHandler) GetDocumentHistory(c echo.Context) error {
	docs, err := h.documentService.History(c.Request().Context(), actorFrom(c))

	return respond(c, http.StatusOK, docs, err)
}
