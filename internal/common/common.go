package common

// tender statuses
const (
	Draft     = "draft"
	Published = "published"
	Closed    = "closed"
	Awarded   = "awarded"
)

// bid statuses
const (
	BidDraft     = "draft"
	BidSubmitted = "submitted"
	BidAccepted  = "accepted"
	BidRejected  = "rejected"
)

const (
	RoleAdmin      = "admin"
	RoleContractor = "contractor"
	RoleOwner      = "owner"
)

const (
	UnitPriced = "unit_priced"
	LumpSum    = "lump_sum"
)

// ledger transaction types and statuses
const (
	TxnPurchase = "purchase"
	TxnUnlock   = "unlock"
	TxnFee      = "fee"

	TxnPending   = "pending"
	TxnCompleted = "completed"
)

const (
	ExtractionProcessing = "processing"
	ExtractionCompleted  = "completed"
	ExtractionFailed     = "failed"
)

const (
	ExtractionStandard  = "standard"
	ExtractionDetailed  = "detailed"
	ExtractionQuick     = "quick"
	ExtractionBidImport = "bid_import"
)

const (
	DocSpecifications = "specifications"
	DocDrawing        = "drawing"
	DocContract       = "contract"
	DocOther          = "other"
	DocBoqPdf         = "boq_pdf"
	DocBidScan        = "bid_scan"
)

const (
	NotifyBidSubmitted = "bid_submitted"
	NotifyBidAwarded   = "bid_awarded"
)
