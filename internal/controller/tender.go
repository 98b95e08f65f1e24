package controller

import (
	"net/http"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/service"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
	"github.com/shopspring/decimal"
)

type tenderRoutesHandler struct {
	tenderService service.Tender
	unlockService service.Unlock
	bidService    service.Bid
	validate      *validator.Validate
}

func newTenderRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate) *tenderRoutesHandler {
	h := &tenderRoutesHandler{
		tenderService: services.Tender,
		unlockService: services.Unlock,
		bidService:    services.Bid,
		validate:      v,
	}

	outer.GET("/tenders", h.GetTenders)
	outer.POST("/tenders", h.PostTender)
	outer.GET("/tenders/:tenderId", h.GetTender)
	outer.PATCH("/tenders/:tenderId", h.PatchTender)
	outer.PUT("/tenders/:tenderId/publish", h.PublishTender)
	outer.PUT("/tenders/:tenderId/boq", h.PutBoq)
	outer.POST("/tenders/:tenderId/unlock", h.UnlockTender)
	outer.POST("/tenders/:tenderId/save", h.SaveTender)
	outer.DELETE("/tenders/:tenderId/save", h.UnsaveTender)
	outer.POST("/tenders/:tenderId/documents", h.PostDocument)
	outer.GET("/tenders/:tenderId/bids", h.GetTenderBids)

	return h
}

type getTendersInput struct {
	Limit    int32  `json:"limit" query:"limit" validate:"gte=0,lte=50"`
	Offset   int32  `json:"offset" query:"offset" validate:"gte=0"`
	Search   string `json:"search" query:"search" validate:"max=255"`
	Location string `json:"location" query:"location" validate:"max=255"`
	Urgent   bool   `json:"urgent" query:"urgent"`
	Saved    bool   `json:"saved" query:"saved"`
}

func newGetTendersInput() getTendersInput {
	return getTendersInput{Limit: defaultLimit, Offset: defaultOffset}
}

// /tenders
func (h *tenderRoutesHandler) GetTenders(c echo.Context) error {
	input := newGetTendersInput()
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	filter := &entity.TenderFilter{
		Search:    input.Search,
		Location:  input.Location,
		Urgent:    input.Urgent,
		SavedOnly: input.Saved,
	}
	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	tenders, err := h.tenderService.ListTenders(c.Request().Context(), actorFrom(c), filter, pg)

	return respond(c, http.StatusOK, tenders, err)
}

type postTenderInput struct {
	Title       string                `json:"title" validate:"required,max=255"`
	Description string                `json:"description" validate:"required"`
	Location    string                `json:"location" validate:"required,max=255"`
	Deadline    time.Time             `json:"deadline" validate:"required"`
	Budget      decimal.Decimal       `json:"budget" validate:"gte=0"`
	Draft       bool                  `json:"draft"`
	BoqItems    []entity.BoqItemInput `json:"boqItems"`
}

// /tenders
func (h *tenderRoutesHandler) PostTender(c echo.Context) error {
	var input postTenderInput
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	model := &entity.CreateTenderInput{
		Title: input.Title, Description: input.Description, Location: input.Location,
		Deadline: input.Deadline, Budget: input.Budget, Status: common.Published, BoqItems: input.BoqItems,
	}
	if input.Draft {
		model.Status = common.Draft
	}

	tender, err := h.tenderService.CreateTender(c.Request().Context(), actorFrom(c), model)

	return respond(c, http.StatusCreated, tender, err)
}

// /tenders/:tenderId
func (h *tenderRoutesHandler) GetTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	tender, err := h.tenderService.GetTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, tender, err)
}

// absent fields keep their value
type patchTenderInput struct {
	Title       *string                `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string                `json:"description" validate:"omitempty,min=1"`
	Location    *string                `json:"location" validate:"omitempty,min=1,max=255"`
	Deadline    *time.Time             `json:"deadline"`
	Budget      *decimal.Decimal       `json:"budget"`
	BoqItems    *[]entity.BoqItemInput `json:"boqItems"`
}

// /tenders/:tenderId
func (h *tenderRoutesHandler) PatchTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	var input patchTenderInput
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	model := &entity.UpdateTenderInput{
		Title: input.Title, Description: input.Description, Location: input.Location,
		Deadline: input.Deadline, Budget: input.Budget,
	}
	if input.BoqItems != nil {
		model.ReplaceBoq = true
		model.BoqItems = *input.BoqItems
	}

	tender, err := h.tenderService.UpdateTender(c.Request().Context(), actorFrom(c), tenderId, model)

	return respond(c, http.StatusOK, tender, err)
}

// /tenders/:tenderId/publish
func (h *tenderRoutesHandler) PublishTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	tender, err := h.tenderService.PublishTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, tender, err)
}

type putBoqInput struct {
	Items []entity.BoqItemInput `json:"items"`
}

// /tenders/:tenderId/boq
func (h *tenderRoutesHandler) PutBoq(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	var input putBoqInput
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	items, err := h.tenderService.ReplaceBoq(c.Request().Context(), actorFrom(c), tenderId, input.Items)

	return respond(c, http.StatusOK, items, err)
}

// /tenders/:tenderId/unlock
func (h *tenderRoutesHandler) UnlockTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.unlockService.Unlock(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, result, err)
}

// /tenders/:tenderId/save
func (h *tenderRoutesHandler) SaveTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	err = h.tenderService.SaveTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, messageResponse{"Tender saved"}, err)
}

// /tenders/:tenderId/save
func (h *tenderRoutesHandler) UnsaveTender(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	err = h.tenderService.UnsaveTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, messageResponse{"Tender removed from saved"}, err)
}

// /tenders/:tenderId/documents
func (h *tenderRoutesHandler) PostDocument(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	file, err := formFile(c, uploadField)
	if err != nil {
		return respondError(c, err)
	}

	doc, err := h.tenderService.UploadDocument(c.Request().Context(), actorFrom(c), tenderId, c.FormValue("documentType"), file)

	return respond(c, http.StatusCreated, doc, err)
}

// /tenders/:tenderId/bids
func (h *tenderRoutesHandler) GetTenderBids(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	bids, err := h.bidService.ListBidsForTender(c.Request().Context(), actorFrom(c), tenderId)

	return respond(c, http.StatusOK, bids, err)
}
