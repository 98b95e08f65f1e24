package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"tender-marketplace-api/internal/ai"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/config"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo"
	"tender-marketplace-api/internal/repo/repo_errors"
	"tender-marketplace-api/internal/storage"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type pair [2]uuid.UUID

// memStore implements every repository interface in memory. Each method
// holds the lock for its whole body, which gives the same atomicity as the
// transactional PostgreSQL implementation.
type memStore struct {
	mu sync.Mutex

	users         map[uuid.UUID]entity.User
	tenders       map[uuid.UUID]entity.Tender
	boq           map[uuid.UUID][]entity.BoqItem
	bids          map[uuid.UUID]entity.Bid
	bidItems      map[uuid.UUID][]entity.BidItem
	credits       map[uuid.UUID]int64
	txns          []entity.Transaction
	unlocks       map[pair]entity.TenderUnlock
	saved         map[pair]bool
	documents     map[uuid.UUID]entity.Document
	extractions   map[uuid.UUID]entity.PdfExtraction
	notifications int

	seq time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[uuid.UUID]entity.User{},
		tenders:     map[uuid.UUID]entity.Tender{},
		boq:         map[uuid.UUID][]entity.BoqItem{},
		bids:        map[uuid.UUID]entity.Bid{},
		bidItems:    map[uuid.UUID][]entity.BidItem{},
		credits:     map[uuid.UUID]int64{},
		unlocks:     map[pair]entity.TenderUnlock{},
		saved:       map[pair]bool{},
		documents:   map[uuid.UUID]entity.Document{},
		extractions: map[uuid.UUID]entity.PdfExtraction{},
		seq:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) repos() *repo.Repositories {
	return &repo.Repositories{
		Diagnostics:  m,
		User:         m,
		Tender:       m,
		Boq:          m,
		Bid:          m,
		Ledger:       m,
		Unlock:       m,
		Document:     m,
		Extraction:   m,
		Notification: m,
	}
}

// tick hands out strictly increasing creation times.
func (m *memStore) tick() time.Time {
	m.seq = m.seq.Add(time.Second)
	return m.seq
}

func (m *memStore) addUser(role string, name string) *entity.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := entity.User{Id: uuid.New(), Username: strings.ToLower(name), Name: name, Role: role, CreatedAt: m.tick()}
	m.users[u.Id] = u

	return &entity.Actor{Id: u.Id, Username: u.Username, Name: u.Name, Role: u.Role}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}

	return nil, repo_errors.ErrNotFound
}

func (m *memStore) GetUserById(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return &u, nil
}

func (m *memStore) CreateTender(ctx context.Context, input *entity.CreateTenderInput) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	t := entity.Tender{
		Id:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Deadline:    input.Deadline,
		Status:      input.Status,
		Budget:      input.Budget,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tenders[t.Id] = t
	m.insertBoqLocked(t.Id, input.BoqItems, 1)

	return t.Id, nil
}

func (m *memStore) GetTenderById(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return &t, nil
}

func (m *memStore) UpdateTender(ctx context.Context, id uuid.UUID, input *entity.UpdateTenderInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[id]
	if !ok {
		return repo_errors.ErrNotFound
	}
	if t.Status == common.Awarded {
		return repo_errors.ErrConflict
	}
	if input.Title != nil {
		t.Title = *input.Title
	}
	if input.Description != nil {
		t.Description = *input.Description
	}
	if input.Location != nil {
		t.Location = *input.Location
	}
	if input.Deadline != nil {
		t.Deadline = *input.Deadline
	}
	if input.Budget != nil {
		t.Budget = *input.Budget
	}
	m.tenders[id] = t

	if input.ReplaceBoq {
		m.replaceBoqLocked(id, input.BoqItems)
	}

	return nil
}

func (m *memStore) PublishTender(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[id]
	if !ok {
		return repo_errors.ErrNotFound
	}
	switch t.Status {
	case common.Published:
		return nil
	case common.Draft:
		t.Status = common.Published
		m.tenders[id] = t
		return nil
	}

	return repo_errors.ErrConflict
}

func (m *memStore) AwardTender(ctx context.Context, tenderId uuid.UUID, bidId uuid.UUID, awardedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[tenderId]
	if !ok {
		return repo_errors.ErrNotFound
	}
	if t.Status != common.Published {
		return repo_errors.ErrConflict
	}

	winner, ok := m.bids[bidId]
	if !ok || winner.TenderId != tenderId || (winner.Status != common.BidDraft && winner.Status != common.BidSubmitted) {
		return repo_errors.ErrNotFound
	}

	for id, b := range m.bids {
		if b.TenderId != tenderId {
			continue
		}
		if id == bidId {
			b.Status = common.BidAccepted
		} else {
			b.Status = common.BidRejected
		}
		m.bids[id] = b
	}

	t.Status = common.Awarded
	t.AwardedBidId = &bidId
	t.AwardedDate = &awardedAt
	m.tenders[tenderId] = t

	return nil
}

func (m *memStore) ListTenders(ctx context.Context, filter *entity.TenderFilter, pg *entity.PaginationInput) ([]entity.TenderListRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]entity.TenderListRow, 0)
	for _, t := range m.tenders {
		if filter.ActiveOnly && (t.Status != common.Published || !t.Deadline.After(filter.Now)) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Urgent && !t.IsUrgent(filter.Now) {
			continue
		}
		isSaved := m.saved[pair{filter.Viewer, t.Id}]
		if filter.SavedOnly && !isSaved {
			continue
		}

		count := 0
		for _, b := range m.bids {
			if b.TenderId == t.Id {
				count++
			}
		}
		rows = append(rows, entity.TenderListRow{Tender: t, BidsCount: count, IsSaved: isSaved})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })

	return rows, nil
}

func (m *memStore) SaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved[pair{userId, tenderId}] = true
	return nil
}

func (m *memStore) UnsaveTender(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.saved, pair{userId, tenderId})
	return nil
}

func (m *memStore) IsSaved(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saved[pair{userId, tenderId}], nil
}

func (m *memStore) GetItemsByTenderId(ctx context.Context, tenderId uuid.UUID) ([]entity.BoqItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := append([]entity.BoqItem{}, m.boq[tenderId]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].DisplayOrder < items[j].DisplayOrder })

	return items, nil
}

func (m *memStore) ReplaceItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenders[tenderId]
	if !ok {
		return repo_errors.ErrNotFound
	}
	if t.Status == common.Awarded {
		return repo_errors.ErrConflict
	}
	m.replaceBoqLocked(tenderId, items)

	return nil
}

func (m *memStore) AppendItems(ctx context.Context, tenderId uuid.UUID, items []entity.BoqItemInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendBoqLocked(tenderId, items)
	return nil
}

func (m *memStore) appendBoqLocked(tenderId uuid.UUID, items []entity.BoqItemInput) {
	next := 1
	for _, item := range m.boq[tenderId] {
		if item.DisplayOrder >= next {
			next = item.DisplayOrder + 1
		}
	}
	m.insertBoqLocked(tenderId, items, next)
}

func (m *memStore) insertBoqLocked(tenderId uuid.UUID, items []entity.BoqItemInput, start int) {
	for i, in := range items {
		m.boq[tenderId] = append(m.boq[tenderId], entity.BoqItem{
			Id:            uuid.New(),
			TenderId:      tenderId,
			Description:   in.Description,
			Unit:          in.Unit,
			Quantity:      in.Quantity,
			ItemType:      in.ItemType,
			OptionGroupId: in.OptionGroupId,
			IsOptional:    in.IsOptional,
			DisplayOrder:  start + i,
			CreatedAt:     m.tick(),
		})
	}
}

func (m *memStore) replaceBoqLocked(tenderId uuid.UUID, items []entity.BoqItemInput) {
	removed := map[uuid.UUID]bool{}
	for _, item := range m.boq[tenderId] {
		removed[item.Id] = true
	}
	delete(m.boq, tenderId)
	m.insertBoqLocked(tenderId, items, 1)

	for bidId, b := range m.bids {
		if b.TenderId != tenderId {
			continue
		}
		kept := m.bidItems[bidId][:0]
		for _, bi := range m.bidItems[bidId] {
			if !removed[bi.BoqItemId] {
				kept = append(kept, bi)
			}
		}
		m.bidItems[bidId] = kept
		b.TotalAmount = m.sumLocked(bidId)
		m.bids[bidId] = b
	}
}

func (m *memStore) sumLocked(bidId uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, bi := range m.bidItems[bidId] {
		total = total.Add(bi.Amount)
	}

	return total
}

func (m *memStore) GetBidById(ctx context.Context, id uuid.UUID) (*entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return &b, nil
}

func (m *memStore) GetBidByTenderAndContractor(ctx context.Context, tenderId uuid.UUID, contractorId uuid.UUID) (*entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bids {
		if b.TenderId == tenderId && b.ContractorId == contractorId {
			return &b, nil
		}
	}

	return nil, repo_errors.ErrNotFound
}

func (m *memStore) GetBidItems(ctx context.Context, bidId uuid.UUID) ([]entity.BidItemRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bids[bidId]
	rows := make([]entity.BidItemRow, 0)
	for _, bi := range m.bidItems[bidId] {
		for _, item := range m.boq[b.TenderId] {
			if item.Id == bi.BoqItemId {
				rows = append(rows, entity.BidItemRow{
					BidItem:      bi,
					Description:  item.Description,
					Unit:         item.Unit,
					ItemType:     item.ItemType,
					DisplayOrder: item.DisplayOrder,
				})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DisplayOrder < rows[j].DisplayOrder })

	return rows, nil
}

func (m *memStore) UpsertBid(ctx context.Context, input *entity.UpsertBidRecord) (*entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bid *entity.Bid
	for _, b := range m.bids {
		if b.TenderId == input.TenderId && b.ContractorId == input.ContractorId {
			b := b
			bid = &b
			break
		}
	}
	if bid == nil {
		now := m.tick()
		bid = &entity.Bid{
			Id:           uuid.New(),
			TenderId:     input.TenderId,
			ContractorId: input.ContractorId,
			Status:       common.BidDraft,
			CreatedAt:    now,
		}
	}
	if bid.Status != common.BidDraft {
		return nil, repo_errors.ErrConflict
	}

	if input.Proposal != nil {
		bid.Proposal = input.Proposal
	}
	if input.OfferFilePath != nil {
		bid.OfferFilePath = input.OfferFilePath
		bid.OfferFileName = input.OfferFileName
	}

	items := make([]entity.BidItem, 0, len(input.Items))
	for _, in := range input.Items {
		items = append(items, entity.BidItem{
			Id:        uuid.New(),
			BidId:     bid.Id,
			BoqItemId: in.BoqItemId,
			UnitPrice: in.UnitPrice,
			Quantity:  in.Quantity,
			Amount:    in.Amount,
		})
	}
	m.bidItems[bid.Id] = items
	bid.TotalAmount = m.sumLocked(bid.Id)
	bid.UpdatedAt = m.tick()
	m.bids[bid.Id] = *bid

	return bid, nil
}

func (m *memStore) SubmitBid(ctx context.Context, bidId uuid.UUID, submittedAt time.Time) (*entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bids[bidId]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}
	if b.Status != common.BidDraft {
		return nil, repo_errors.ErrConflict
	}
	b.TotalAmount = m.sumLocked(bidId)
	b.Status = common.BidSubmitted
	b.SubmittedAt = &submittedAt
	m.bids[bidId] = b

	return &b, nil
}

func (m *memStore) GetTenderBids(ctx context.Context, tenderId uuid.UUID) ([]entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bids := make([]entity.Bid, 0)
	for _, b := range m.bids {
		if b.TenderId == tenderId {
			bids = append(bids, b)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })

	return bids, nil
}

func (m *memStore) GetContractorBids(ctx context.Context, contractorId uuid.UUID, pg *entity.PaginationInput) ([]entity.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bids := make([]entity.Bid, 0)
	for _, b := range m.bids {
		if b.ContractorId == contractorId {
			bids = append(bids, b)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })

	return bids, nil
}

func (m *memStore) GetOrCreateCredit(ctx context.Context, userId uuid.UUID) (*entity.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.credits[userId]; !ok {
		m.credits[userId] = 0
	}

	return &entity.Credit{UserId: userId, Balance: m.credits[userId]}, nil
}

func (m *memStore) AdjustBalance(ctx context.Context, userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.adjustLocked(userId, delta, input)
}

func (m *memStore) adjustLocked(userId uuid.UUID, delta int64, input *entity.TransactionInput) (*entity.Transaction, int64, error) {
	balance := m.credits[userId]
	if delta < 0 && balance+delta < 0 {
		return nil, 0, repo_errors.ErrInsufficientFunds
	}
	m.credits[userId] = balance + delta

	txn := entity.Transaction{
		Id:          uuid.New(),
		UserId:      userId,
		Type:        input.Type,
		Amount:      delta,
		CashAmount:  input.CashAmount,
		Description: input.Description,
		Status:      input.Status,
		CreatedAt:   m.tick(),
	}
	m.txns = append(m.txns, txn)

	return &txn, balance + delta, nil
}

func (m *memStore) GetTransactions(ctx context.Context, userId uuid.UUID, limit int) ([]entity.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txns := make([]entity.Transaction, 0)
	for i := len(m.txns) - 1; i >= 0 && len(txns) < limit; i-- {
		if m.txns[i].UserId == userId {
			txns = append(txns, m.txns[i])
		}
	}

	return txns, nil
}

func (m *memStore) HasUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.unlocks[pair{userId, tenderId}]
	return ok, nil
}

func (m *memStore) CreateUnlock(ctx context.Context, userId uuid.UUID, tenderId uuid.UUID, cost int64, description string) (*entity.TenderUnlock, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pair{userId, tenderId}
	if _, ok := m.unlocks[key]; ok {
		return nil, 0, repo_errors.ErrAlreadyExists
	}

	_, balance, err := m.adjustLocked(userId, -cost, &entity.TransactionInput{
		Type:        common.TxnUnlock,
		Description: description,
		Status:      common.TxnCompleted,
	})
	if err != nil {
		return nil, 0, err
	}

	u := entity.TenderUnlock{UserId: userId, TenderId: tenderId, CreditsSpent: cost, CreatedAt: m.tick()}
	m.unlocks[key] = u

	return &u, balance, nil
}

func (m *memStore) CreateDocument(ctx context.Context, input *entity.CreateDocumentInput) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := entity.Document{
		Id:               uuid.New(),
		TenderId:         input.TenderId,
		UserId:           input.UserId,
		DocumentType:     input.DocumentType,
		FileName:         input.FileName,
		OriginalFilename: input.OriginalFilename,
		FilePath:         input.FilePath,
		FileSize:         input.FileSize,
		MimeType:         input.MimeType,
		CreatedAt:        m.tick(),
	}
	m.documents[d.Id] = d

	return d.Id, nil
}

func (m *memStore) GetDocumentById(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return &d, nil
}

func (m *memStore) ListTenderDocuments(ctx context.Context, tenderId uuid.UUID) ([]entity.Document, error) {
	return m.documentsWhere(func(d entity.Document) bool { return d.TenderId == tenderId }), nil
}

func (m *memStore) ListDocuments(ctx context.Context, pg *entity.PaginationInput) ([]entity.Document, error) {
	docs := m.documentsWhere(func(entity.Document) bool { return true })
	if pg != nil {
		if pg.Offset >= len(docs) {
			return []entity.Document{}, nil
		}
		docs = docs[pg.Offset:]
		if pg.Limit > 0 && pg.Limit < len(docs) {
			docs = docs[:pg.Limit]
		}
	}

	return docs, nil
}

func (m *memStore) ListDocumentHistory(ctx context.Context, userId uuid.UUID) ([]entity.Document, error) {
	m.mu.Lock()
	bidTenders := map[uuid.UUID]bool{}
	for _, b := range m.bids {
		if b.ContractorId == userId {
			bidTenders[b.TenderId] = true
		}
	}
	m.mu.Unlock()

	return m.documentsWhere(func(d entity.Document) bool {
		return d.UserId == userId || (d.DocumentType == common.DocBoqPdf && bidTenders[d.TenderId])
	}), nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}
	delete(m.documents, id)
	for eid, e := range m.extractions {
		if e.DocumentId == id {
			delete(m.extractions, eid)
		}
	}

	return &d, nil
}

// documentsWhere returns matching documents, newest first.
func (m *memStore) documentsWhere(match func(entity.Document) bool) []entity.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.Document, 0)
	for _, d := range m.documents {
		if match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out
}

func (m *memStore) CreateExtraction(ctx context.Context, input *entity.CreateExtractionInput) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entity.PdfExtraction{
		Id:             uuid.New(),
		DocumentId:     input.DocumentId,
		TenderId:       input.TenderId,
		ExtractionType: input.ExtractionType,
		Status:         common.ExtractionProcessing,
		CreatedAt:      m.tick(),
	}
	m.extractions[e.Id] = e

	return e.Id, nil
}

func (m *memStore) GetExtractionById(ctx context.Context, id uuid.UUID) (*entity.PdfExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.extractions[id]
	if !ok {
		return nil, repo_errors.ErrNotFound
	}

	return &e, nil
}

func (m *memStore) CompleteExtraction(ctx context.Context, input *entity.CompleteExtractionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.extractions[input.Id]
	if !ok || e.Status != common.ExtractionProcessing {
		return repo_errors.ErrConflict
	}
	if len(input.AppendItems) > 0 && m.tenders[input.TenderId].Status == common.Awarded {
		return repo_errors.ErrCatalogFrozen
	}

	payload := types.JSONText(input.Payload)
	confidence := input.Confidence
	processedAt := input.ProcessedAt
	e.Status = common.ExtractionCompleted
	e.AiResponse = &payload
	e.ConfidenceScore = &confidence
	e.ProcessedAt = &processedAt
	m.extractions[e.Id] = e

	m.appendBoqLocked(input.TenderId, input.AppendItems)

	return nil
}

func (m *memStore) FailExtraction(ctx context.Context, id uuid.UUID, message string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.extractions[id]
	if !ok || e.Status != common.ExtractionProcessing {
		return repo_errors.ErrConflict
	}
	e.Status = common.ExtractionFailed
	e.ErrorMessage = &message
	e.ProcessedAt = &processedAt
	m.extractions[id] = e

	return nil
}

func (m *memStore) GetTenderExtractions(ctx context.Context, tenderId uuid.UUID) ([]entity.PdfExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entity.PdfExtraction, 0)
	for _, e := range m.extractions {
		if e.TenderId == tenderId {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

func (m *memStore) CreateNotification(ctx context.Context, userId uuid.UUID, kind string, data []byte) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.notifications++
	return uuid.New(), nil
}

func (m *memStore) transactionsOf(userId uuid.UUID) []entity.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.Transaction
	for _, t := range m.txns {
		if t.UserId == userId {
			out = append(out, t)
		}
	}

	return out
}

func (m *memStore) setBalance(userId uuid.UUID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credits[userId] = balance
}

// memStorage is an in-memory storage.Storage.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *memStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStorage) PublicURL(key string) string {
	return "/storage/" + key
}

func (s *memStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

type notification struct {
	UserId  uuid.UUID
	Kind    string
	Payload map[string]any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(ctx context.Context, userId uuid.UUID, kind string, payload map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, notification{UserId: userId, Kind: kind, Payload: payload})
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []entity.ExtractionJob
	err  error
}

func (q *recordingQueue) EnqueueExtraction(ctx context.Context, job entity.ExtractionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// stubText stands in for document text extraction.
type stubText struct {
	text string
	err  error
}

func (s stubText) ExtractText(ctx context.Context, filePath string) (string, error) {
	return s.text, s.err
}

type failingProvider struct {
	configured bool
	err        error
}

func (p failingProvider) Name() string       { return "failing" }
func (p failingProvider) IsConfigured() bool { return p.configured }
func (p failingProvider) ExtractBoqFromPdf(ctx context.Context, filePath string, extractionType string) (*ai.Result, error) {
	return nil, p.err
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memStore
	storage  *memStorage
	notifier *recordingNotifier
	queue    *recordingQueue
	services *Services

	admin      *entity.Actor
	owner      *entity.Actor
	contractor *entity.Actor
	rival      *entity.Actor
}

type fixtureOption func(*Dependencies)

func withProvider(p ai.Provider) fixtureOption {
	return func(d *Dependencies) { d.Provider = p }
}

func withQueue(q ExtractionQueue) fixtureOption {
	return func(d *Dependencies) { d.Queue = q }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		store:    newMemStore(),
		storage:  newMemStorage(),
		notifier: &recordingNotifier{},
		queue:    &recordingQueue{},
	}
	f.admin = f.store.addUser(common.RoleAdmin, "Admin")
	f.owner = f.store.addUser(common.RoleOwner, "Owner")
	f.contractor = f.store.addUser(common.RoleContractor, "Acme")
	f.rival = f.store.addUser(common.RoleContractor, "Rival")

	deps := Dependencies{
		Repos:    f.store.repos(),
		Storage:  f.storage,
		Provider: ai.NewMockProvider(stubText{text: "BOQ"}),
		Notifier: f.notifier,
		Billing:  config.Default().Billing,
		Workers:  config.ExtractionWorkerConfig{Inline: true},
		Now:      func() time.Time { return testNow },

		MaxUploadSize: 10 << 20,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.services = NewServices(deps)

	return f
}

// publishedTender creates a published tender with a 10 unit item and a lump
// sum item.
func (f *fixture) publishedTender(t *testing.T) (*entity.TenderOutputModel, []entity.BoqItem) {
	t.Helper()

	out, err := f.services.Tender.CreateTender(context.Background(), f.admin, &entity.CreateTenderInput{
		Title:       "School renovation",
		Description: "Roof and facade",
		Location:    "Milano",
		Deadline:    testNow.Add(30 * 24 * time.Hour),
		Budget:      decimal.NewFromInt(10000),
		BoqItems: []entity.BoqItemInput{
			{Description: "Roof tiles", Unit: "mq", Quantity: decimal.NewFromInt(10), ItemType: common.UnitPriced},
			{Description: "Site setup", Unit: "a corpo", Quantity: decimal.NewFromInt(1), ItemType: common.LumpSum},
		},
	})
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}

	items, _ := f.store.GetItemsByTenderId(context.Background(), uuid.MustParse(out.Id))

	return out, items
}

func decodeJSON(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}

	return m
}

var errBoom = errors.New("boom")
