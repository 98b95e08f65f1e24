package controller

import (
	"encoding/json"
	"net/http"
	"strings"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
)

type bidRoutesHandler struct {
	bidService service.Bid
	validate   *validator.Validate
}

func newBidRoutesHandler(outer *echo.Group, services *service.Services, v *validator.Validate) *bidRoutesHandler {
	h := &bidRoutesHandler{bidService: services.Bid, validate: v}

	outer.PUT("/tenders/:tenderId/bid", h.PutBid)
	outer.GET("/bids/my", h.GetUserBids)
	outer.GET("/bids/:bidId", h.GetBid)
	outer.POST("/bids/:bidId/submit", h.SubmitBid)
	outer.POST("/bids/:bidId/award", h.AwardBid)

	return h
}

type putBidInput struct {
	Items    []entity.BidItemInput `json:"items"`
	Proposal *string               `json:"proposal" validate:"omitempty,max=5000"`
}

// /tenders/:tenderId/bid
//
// Accepts a JSON body, or a multipart form with the same document in the
// `bid` field and an optional `offer` file.
func (h *bidRoutesHandler) PutBid(c echo.Context) error {
	tenderId, err := pathId(c, "tenderId")
	if err != nil {
		return respondError(c, err)
	}

	var input putBidInput
	var offer *entity.UploadedFile
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := json.Unmarshal([]byte(c.FormValue("bid")), &input); err != nil {
			return respondError(c, errBadInput)
		}
		if err := h.validate.Struct(input); err != nil {
			return respondError(c, &service.ValidationError{Fields: service.FieldErrors(err, "")})
		}
		if offer, err = formFile(c, "offer"); err != nil {
			return respondError(c, err)
		}
	} else if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	model := &entity.UpsertBidInput{TenderId: tenderId, Items: input.Items, Proposal: input.Proposal}
	if offer != nil {
		model.OfferFile = &entity.OfferFile{Name: offer.OriginalName, Data: offer.Data}
	}

	bid, err := h.bidService.UpsertBid(c.Request().Context(), actorFrom(c), model)

	return respond(c, http.StatusOK, bid, err)
}

type getUserBidsInput struct {
	Limit  int32 `json:"limit" query:"limit" validate:"gte=0,lte=50"`
	Offset int32 `json:"offset" query:"offset" validate:"gte=0"`
}

// /bids/my
func (h *bidRoutesHandler) GetUserBids(c echo.Context) error {
	input := getUserBidsInput{Limit: defaultLimit, Offset: defaultOffset}
	if err := bindAndValidate(c, h.validate, &input); err != nil {
		return respondError(c, err)
	}

	pg := entity.NewPaginationInput(int(input.Limit), int(input.Offset))
	bids, err := h.bidService.ListMyBids(c.Request().Context(), actorFrom(c), pg)

	return respond(c, http.StatusOK, bids, err)
}

// /bids/:bidId
func (h *bidRoutesHandler) GetBid(c echo.Context) error {
	bidId, err := pathId(c, "bidId")
	if err != nil {
		return respondError(c, err)
	}

	bid, err := h.bidService.GetBid(c.Request().Context(), actorFrom(c), bidId)

	return respond(c, http.StatusOK, bid, err)
}

// /bids/:bidId/submit
func (h *bidRoutesHandler) SubmitBid(c echo.Context) error {
	bidId, err := pathId(c, "bidId")
	if err != nil {
		return respondError(c, err)
	}

	bid, err := h.bidService.SubmitBid(c.Request().Context(), actorFrom(c), bidId)

	return respond(c, http.StatusOK, bid, err)
}

// /bids/:bidId/award
func (h *bidRoutesHandler) AwardBid(c echo.Context) error {
	bidId, err := pathId(c, "bidId")
	if err != nil {
		return respondError(c, err)
	}

	tender, err := h.bidService.AwardBid(c.Request().Context(), actorFrom(c), bidId)

	return respond(c, http.StatusOK, tender, err)
}
