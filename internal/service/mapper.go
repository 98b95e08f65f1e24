package service

import (
	"encoding/json"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/storage"
	"time"
)

const (
	moneyPlaces    = 2
	quantityPlaces = 3
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func mapTender(t *entity.Tender, now time.Time) *entity.TenderOutputModel {
	out := &entity.TenderOutputModel{
		Id:          t.Id.String(),
		Title:       t.Title,
		Description: t.Description,
		Location:    t.Location,
		Deadline:    formatTime(t.Deadline),
		Status:      t.Status,
		Budget:      t.Budget.StringFixed(moneyPlaces),
		CreatedBy:   t.CreatedBy.String(),
		AwardedDate: formatTimePtr(t.AwardedDate),
		IsUrgent:    t.IsUrgent(now),
		CreatedAt:   formatTime(t.CreatedAt),
	}
	if t.AwardedBidId != nil {
		id := t.AwardedBidId.String()
		out.AwardedBidId = &id
	}

	return out
}

func mapTenderRows(rows []entity.TenderListRow, now time.Time, unlocked map[string]bool) []entity.TenderOutputModel {
	s := make([]entity.TenderOutputModel, 0, len(rows))
	for i := range rows {
		out := mapTender(&rows[i].Tender, now)
		out.BidsCount = rows[i].BidsCount
		out.IsSaved = rows[i].IsSaved
		out.IsUnlocked = unlocked[out.Id]
		s = append(s, *out)
	}

	return s
}

func mapBoqItems(items []entity.BoqItem) []entity.BoqItemOutputModel {
	s := make([]entity.BoqItemOutputModel, 0, len(items))
	for _, item := range items {
		s = append(s, entity.BoqItemOutputModel{
			Id:            item.Id.String(),
			Description:   item.Description,
			Unit:          item.Unit,
			Quantity:      item.Quantity.StringFixed(quantityPlaces),
			ItemType:      item.ItemType,
			OptionGroupId: item.OptionGroupId,
			IsOptional:    item.IsOptional,
			DisplayOrder:  item.DisplayOrder,
		})
	}

	return s
}

func mapBid(b *entity.Bid, st storage.Storage) *entity.BidOutputModel {
	out := &entity.BidOutputModel{
		Id:            b.Id.String(),
		TenderId:      b.TenderId.String(),
		ContractorId:  b.ContractorId.String(),
		Status:        b.Status,
		TotalAmount:   b.TotalAmount.StringFixed(moneyPlaces),
		SubmittedAt:   formatTimePtr(b.SubmittedAt),
		OfferFileName: b.OfferFileName,
		Proposal:      b.Proposal,
		CreatedAt:     formatTime(b.CreatedAt),
	}
	if b.OfferFilePath != nil && st != nil {
		url := st.PublicURL(*b.OfferFilePath)
		out.OfferFileUrl = &url
	}

	return out
}

func mapBids(bids []entity.Bid, st storage.Storage) []entity.BidOutputModel {
	s := make([]entity.BidOutputModel, 0, len(bids))
	for i := range bids {
		s = append(s, *mapBid(&bids[i], st))
	}

	return s
}

func mapBidItems(rows []entity.BidItemRow) []entity.BidItemOutputModel {
	s := make([]entity.BidItemOutputModel, 0, len(rows))
	for _, row := range rows {
		s = append(s, entity.BidItemOutputModel{
			Id:          row.Id.String(),
			BoqItemId:   row.BoqItemId.String(),
			Description: row.Description,
			Unit:        row.Unit,
			ItemType:    row.ItemType,
			UnitPrice:   row.UnitPrice.StringFixed(moneyPlaces),
			Quantity:    row.Quantity.StringFixed(quantityPlaces),
			Amount:      row.Amount.StringFixed(moneyPlaces),
		})
	}

	return s
}

func mapTransaction(t *entity.Transaction) entity.TransactionOutputModel {
	out := entity.TransactionOutputModel{
		Id:          t.Id.String(),
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   formatTime(t.CreatedAt),
	}
	if t.CashAmount.Valid {
		cash := t.CashAmount.Decimal.StringFixed(moneyPlaces)
		out.CashAmount = &cash
	}

	return out
}

func mapTransactions(txns []entity.Transaction) []entity.TransactionOutputModel {
	s := make([]entity.TransactionOutputModel, 0, len(txns))
	for i := range txns {
		s = append(s, mapTransaction(&txns[i]))
	}

	return s
}

func mapExtraction(e *entity.PdfExtraction) *entity.ExtractionOutputModel {
	out := &entity.ExtractionOutputModel{
		Id:              e.Id.String(),
		DocumentId:      e.DocumentId.String(),
		Status:          e.Status,
		ExtractionType:  e.ExtractionType,
		CreatedAt:       formatTime(e.CreatedAt),
		ProcessedAt:     formatTimePtr(e.ProcessedAt),
		ConfidenceScore: e.ConfidenceScore,
		Error:           e.ErrorMessage,
	}
	if e.AiResponse != nil && len(*e.AiResponse) > 0 {
		out.Data = json.RawMessage(*e.AiResponse)
	}

	return out
}

func mapExtractions(extractions []entity.PdfExtraction) []entity.ExtractionOutputModel {
	s := make([]entity.ExtractionOutputModel, 0, len(extractions))
	for i := range extractions {
		s = append(s, *mapExtraction(&extractions[i]))
	}

	return s
}

func mapDocument(d *entity.Document, st storage.Storage) *entity.DocumentOutputModel {
	return &entity.DocumentOutputModel{
		Id:               d.Id.String(),
		TenderId:         d.TenderId.String(),
		DocumentType:     d.DocumentType,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		MimeType:         d.MimeType,
		Url:              st.PublicURL(d.FilePath),
		CreatedAt:        formatTime(d.CreatedAt),
	}
}

func mapDocuments(docs []entity.Document, st storage.Storage) []entity.DocumentOutputModel {
	out := make([]entity.DocumentOutputModel, 0, len(docs))
	for i := range docs {
		out = append(out, *mapDocument(&docs[i], st))
	}

	return out
}
