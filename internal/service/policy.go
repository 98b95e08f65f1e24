package service

import (
	"fmt"
	"tender-marketplace-api/internal/common"
	"tender-marketplace-api/internal/entity"

	"github.com/google/uuid"
)

type Action string

const (
	ActionTenderCreate     Action = "tender.create"
	ActionTenderUpdate     Action = "tender.update"
	ActionTenderPublish    Action = "tender.publish"
	ActionTenderReplaceBoq Action = "tender.replace_boq"
	ActionTenderView       Action = "tender.view"
	ActionTenderListBids   Action = "tender.list_bids"
	ActionTenderUnlock     Action = "tender.unlock"
	ActionTenderSave       Action = "tender.save"
	ActionBidUpsert        Action = "bid.upsert"
	ActionBidSubmit        Action = "bid.submit"
	ActionBidAward         Action = "bid.award"
	ActionBidView          Action = "bid.view"
	ActionBillingView      Action = "billing.view"
	ActionBillingPurchase  Action = "billing.purchase"
	ActionExtractionStart  Action = "extraction.start"
	ActionExtractionView   Action = "extraction.view"
	ActionScanBidImport    Action = "scan.bid_import"
	ActionDocumentUpload   Action = "document.upload"
	ActionDocumentView     Action = "document.view"
	ActionDocumentListAll  Action = "document.list_all"
	ActionDocumentHistory  Action = "document.history"
	ActionDocumentDelete   Action = "document.delete"
)

// Resource describes what an action touches. OwnerId is the contractor of a
// bid, zero when ownership does not matter.
type Resource struct {
	OwnerId uuid.UUID
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

var actionRoles = map[Action][]string{
	ActionTenderCreate:     {common.RoleAdmin},
	ActionTenderUpdate:     {common.RoleAdmin},
	ActionTenderPublish:    {common.RoleAdmin},
	ActionTenderReplaceBoq: {common.RoleAdmin},
	ActionTenderView:       {common.RoleAdmin, common.RoleOwner, common.RoleContractor},
	ActionTenderListBids:   {common.RoleAdmin, common.RoleOwner},
	ActionTenderUnlock:     {common.RoleContractor},
	ActionTenderSave:       {common.RoleContractor},
	ActionBidUpsert:        {common.RoleContractor},
	ActionBidSubmit:        {common.RoleContractor},
	ActionBidAward:         {common.RoleAdmin},
	ActionBidView:          {common.RoleAdmin, common.RoleOwner, common.RoleContractor},
	ActionBillingView:      {common.RoleContractor},
	ActionBillingPurchase:  {common.RoleContractor},
	ActionExtractionStart:  {common.RoleAdmin},
	ActionExtractionView:   {common.RoleAdmin, common.RoleOwner},
	ActionScanBidImport:    {common.RoleContractor},
	ActionDocumentUpload:   {common.RoleAdmin},
	ActionDocumentView:     {common.RoleAdmin, common.RoleOwner, common.RoleContractor},
	ActionDocumentListAll:  {common.RoleAdmin},
	ActionDocumentHistory:  {common.RoleContractor},
	ActionDocumentDelete:   {common.RoleAdmin},
}

// Authorize is the single role and ownership policy of the marketplace.
func Authorize(action Action, actor *entity.Actor, resource *Resource) Decision {
	if actor == nil || actor.Id == uuid.Nil {
		return deny("anonymous caller")
	}

	roles, ok := actionRoles[action]
	if !ok {
		return deny("unknown action %s", action)
	}

	permitted := false
	for _, role := range roles {
		if actor.Role == role {
			permitted = true
			break
		}
	}
	if !permitted {
		return deny("role %s may not perform %s", actor.Role, action)
	}

	// contractors only act on their own bids
	switch action {
	case ActionBidSubmit, ActionBidView:
		if actor.Role == common.RoleContractor {
			if resource == nil || resource.OwnerId != actor.Id {
				return deny("bid belongs to another contractor")
			}
		}
	}

	return allow()
}

func authorize(action Action, actor *entity.Actor, resource *Resource) error {
	if d := Authorize(action, actor, resource); !d.Allowed {
		return fmt.Errorf("%w: %s", ErrUnauthorized, d.Reason)
	}

	return nil
}

func isPrivileged(actor *entity.Actor) bool {
	return actor != nil && (actor.Role == common.RoleAdmin || actor.Role == common.RoleOwner)
}
