package service

import (
	"context"
	"errors"
	"testing"
	"tender-marketplace-api/internal/ai"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"
	"tender-marketplace-api/internal/repo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfUpload(name string) *entity.UploadedFile {
	return &entity.UploadedFile{OriginalName: name, MimeType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func TestExtraction_InlineAppendsAfterExistingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	out, err := f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("computo.pdf"), "")
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionCompleted, out.Status)

	items, err := f.store.GetItemsByTenderId(ctx, tenderId)
	require.NoError(t, err)
	require.Len(t, items, 6)
	for i, item := range items {
		assert.Equal(t, i+1, item.DisplayOrder)
	}
	assert.Equal(t, "Excavation works", items[2].Description)
	assert.Equal(t, common.LumpSum, items[5].ItemType)

	status, err := f.services.Extraction.GetStatus(ctx, f.admin, uuid.MustParse(out.ExtractionId))
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionStandard, status.ExtractionType)
	require.NotNil(t, status.ConfidenceScore)
	assert.InDelta(t, 0.95, *status.ConfidenceScore, 1e-9)
	require.NotNil(t, status.ProcessedAt)
	data := decodeJSON(t, status.Data)
	assert.Len(t, data["boq_items"], 4)

	doc, err := f.store.GetDocumentById(ctx, uuid.MustParse(out.DocumentId))
	require.NoError(t, err)
	assert.Equal(t, common.DocBoqPdf, doc.DocumentType)
	assert.Contains(t, doc.FilePath, "pdfs/")
}

func TestExtraction_ImageOnlyDocumentFails(t *testing.T) {
	f := newFixture(t, withProvider(ai.NewMockProvider(stubText{err: ai.ErrNoExtractableText})))
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	out, err := f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("scan.pdf"), common.ExtractionDetailed)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionFailed, out.Status)

	status, err := f.services.Extraction.GetStatus(ctx, f.admin, uuid.MustParse(out.ExtractionId))
	require.NoError(t, err)
	require.NotNil(t, status.Error)
	assert.Contains(t, *status.Error, "scanned image")
	assert.NotNil(t, status.ProcessedAt)

	items, err := f.store.GetItemsByTenderId(ctx, tenderId)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestExtraction_ProcessFailures(t *testing.T) {
	testCases := []struct {
		name      string
		provider  ai.Provider
		permanent bool
	}{
		{name: "not configured", provider: failingProvider{configured: false}, permanent: true},
		{name: "unsupported format", provider: failingProvider{configured: true, err: ai.ErrUnsupportedFormat}, permanent: true},
		{name: "transient request failure", provider: failingProvider{configured: true, err: ai.ErrProviderRequest}, permanent: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, withProvider(tc.provider))
			ctx := context.Background()
			tender, _ := f.publishedTender(t)
			tenderId := uuid.MustParse(tender.Id)

			id, err := f.services.Extraction.StartExtraction(ctx, uuid.New(), tenderId, common.ExtractionStandard)
			require.NoError(t, err)

			err = f.services.Extraction.ProcessExtraction(ctx, id, "/tmp/file.pdf")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrExternalProviderFailure)
			assert.Equal(t, tc.permanent, IsPermanent(err))

			record, err := f.store.GetExtractionById(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, common.ExtractionFailed, record.Status)
			assert.NotNil(t, record.ErrorMessage)
		})
	}
}

func TestExtraction_ProcessTerminalRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.services.Extraction.ProcessExtraction(ctx, uuid.New(), "/tmp/file.pdf")
	assert.ErrorIs(t, err, ErrExtractionNotFound)
	assert.True(t, IsPermanent(err))

	tender, _ := f.publishedTender(t)
	id, err := f.services.Extraction.StartExtraction(ctx, uuid.New(), uuid.MustParse(tender.Id), common.ExtractionQuick)
	require.NoError(t, err)
	require.NoError(t, f.store.FailExtraction(ctx, id, "gone", testNow))

	err = f.services.Extraction.ProcessExtraction(ctx, id, "/tmp/file.pdf")
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsPermanent(err))
}

func TestExtraction_ProcessStoredMissingObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, _ := f.publishedTender(t)

	id, err := f.services.Extraction.StartExtraction(ctx, uuid.New(), uuid.MustParse(tender.Id), common.ExtractionStandard)
	require.NoError(t, err)

	err = f.services.Extraction.ProcessStored(ctx, id, "pdfs/missing.pdf")
	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.True(t, IsPermanent(err))

	record, err := f.store.GetExtractionById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionFailed, record.Status)
}

func TestExtraction_RetryOpensNewRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)
	documentId := uuid.New()

	id, err := f.services.Extraction.StartExtraction(ctx, documentId, tenderId, common.ExtractionDetailed)
	require.NoError(t, err)
	require.NoError(t, f.store.FailExtraction(ctx, id, "timeout", testNow))

	retryId, err := f.services.Extraction.RetryExtraction(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, id, retryId)

	retry, err := f.store.GetExtractionById(ctx, retryId)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionProcessing, retry.Status)
	assert.Equal(t, documentId, retry.DocumentId)
	assert.Equal(t, common.ExtractionDetailed, retry.ExtractionType)

	old, err := f.store.GetExtractionById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionFailed, old.Status)

	_, err = f.services.Extraction.RetryExtraction(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrExtractionNotFound)

	list, err := f.services.Extraction.ListForTender(ctx, f.owner, tenderId)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, retryId.String(), list[0].Id)
}

func TestExtraction_QueuedUpload(t *testing.T) {
	queue := &recordingQueue{}
	f := newFixture(t, withQueue(queue), func(d *Dependencies) { d.Workers.Inline = false })
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	out, err := f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("computo.xlsx"), common.ExtractionQuick)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionProcessing, out.Status)

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, out.ExtractionId, job.ExtractionId.String())
	assert.Equal(t, 1, job.Attempt)
	assert.Contains(t, job.StorageKey, "pdfs/")

	ok, err := f.storage.Exists(ctx, job.StorageKey)
	require.NoError(t, err)
	assert.True(t, ok)

	items, err := f.store.GetItemsByTenderId(ctx, tenderId)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestExtraction_EnqueueFailureFailsRecord(t *testing.T) {
	queue := &recordingQueue{err: errors.New("redis down")}
	f := newFixture(t, withQueue(queue), func(d *Dependencies) { d.Workers.Inline = false })
	ctx := context.Background()
	tender, _ := f.publishedTender(t)

	_, err := f.services.Extraction.UploadAndExtract(ctx, f.admin, uuid.MustParse(tender.Id), pdfUpload("computo.pdf"), "")
	require.Error(t, err)

	list, err := f.services.Extraction.ListForTender(ctx, f.admin, uuid.MustParse(tender.Id))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, common.ExtractionFailed, list[0].Status)
}

func TestExtraction_UploadRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	_, err := f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("plan.dwg"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("computo.XLS"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = f.services.Extraction.UploadAndExtract(ctx, f.admin, tenderId, pdfUpload("plan.pdf"), common.ExtractionBidImport)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "extractionType", verr.Fields[0].Field)

	_, err = f.services.Extraction.UploadAndExtract(ctx, f.contractor, tenderId, pdfUpload("plan.pdf"), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.services.Extraction.UploadAndExtract(ctx, f.admin, uuid.New(), pdfUpload("plan.pdf"), "")
	assert.ErrorIs(t, err, ErrTenderNotFound)

	assert.Empty(t, f.storage.keys())
}

func TestExtraction_ScanBidLeavesCatalogAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, _ := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	out, err := f.services.Extraction.ScanBid(ctx, f.contractor, tenderId, pdfUpload("my offer.pdf"))
	require.NoError(t, err)
	require.NotNil(t, out.Confidence)
	data := decodeJSON(t, out.Data)
	assert.Len(t, data["boq_items"], 4)

	items, err := f.store.GetItemsByTenderId(ctx, tenderId)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	keys := f.storage.keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "contractor_scans/"+f.contractor.Id.String()+"/")

	record, err := f.store.GetExtractionById(ctx, uuid.MustParse(out.ExtractionId))
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionBidImport, record.ExtractionType)
}

func TestExtraction_ScanBidProviderFailure(t *testing.T) {
	f := newFixture(t, withProvider(ai.NewMockProvider(stubText{err: ai.ErrNoExtractableText})))
	ctx := context.Background()
	tender, _ := f.publishedTender(t)

	_, err := f.services.Extraction.ScanBid(ctx, f.contractor, uuid.MustParse(tender.Id), pdfUpload("scan.pdf"))
	assert.ErrorIs(t, err, ErrExternalProviderFailure)
	assert.Contains(t, err.Error(), "scanned image")

	_, err = f.services.Extraction.ScanBid(ctx, f.admin, uuid.MustParse(tender.Id), pdfUpload("scan.pdf"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// brokenCompletion fails every completion write.
type brokenCompletion struct {
	repo.Extraction
	err error
}

func (b brokenCompletion) CompleteExtraction(ctx context.Context, input *entity.CompleteExtractionInput) error {
	return b.err
}

func TestExtraction_CompletionWriteFailureFailsRecord(t *testing.T) {
	f := newFixture(t, func(d *Dependencies) {
		d.Repos.Extraction = brokenCompletion{Extraction: d.Repos.Extraction, err: errBoom}
	})
	ctx := context.Background()
	tender, _ := f.publishedTender(t)

	id, err := f.services.Extraction.StartExtraction(ctx, uuid.New(), uuid.MustParse(tender.Id), common.ExtractionStandard)
	require.NoError(t, err)

	err = f.services.Extraction.ProcessExtraction(ctx, id, "/tmp/file.pdf")
	require.ErrorIs(t, err, errBoom)
	assert.False(t, IsPermanent(err))

	record, err := f.store.GetExtractionById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionFailed, record.Status)
	require.NotNil(t, record.ProcessedAt)
	require.NotNil(t, record.ErrorMessage)
	assert.Contains(t, *record.ErrorMessage, "boom")
}

func TestExtraction_AwardedTenderCatalogIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tender, items := f.publishedTender(t)
	tenderId := uuid.MustParse(tender.Id)

	bid, err := f.services.Bid.UpsertBid(ctx, f.contractor, &entity.UpsertBidInput{
		TenderId: tenderId,
		Items:    priced(items, 100, 500),
	})
	require.NoError(t, err)
	_, err = f.services.Bid.AwardBid(ctx, f.admin, uuid.MustParse(bid.Id))
	require.NoError(t, err)

	id, err := f.services.Extraction.StartExtraction(ctx, uuid.New(), tenderId, common.ExtractionStandard)
	require.NoError(t, err)

	err = f.services.Extraction.ProcessExtraction(ctx, id, "/tmp/file.pdf")
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, IsPermanent(err))

	record, err := f.store.GetExtractionById(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, common.ExtractionFailed, record.Status)
	require.NotNil(t, record.ErrorMessage)
	assert.Contains(t, *record.ErrorMessage, "awarded")

	catalog, err := f.store.GetItemsByTenderId(ctx, tenderId)
	require.NoError(t, err)
	assert.Len(t, catalog, 2)
}
