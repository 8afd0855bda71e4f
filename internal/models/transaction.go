package models

import (
	"time"

	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

// OwnerType says which kind of entity a transaction belongs to.
type OwnerType string

const (
	OwnerAccount   OwnerType = "account"
	OwnerPortfolio OwnerType = "portfolio"
)

// TransactionType is the closed set of booking types the ledger understands.
type TransactionType string

const (
	TypeBuy              TransactionType = "BUY"
	TypeSell             TransactionType = "SELL"
	TypeDeliveryInbound  TransactionType = "DELIVERY_INBOUND"
	TypeDeliveryOutbound TransactionType = "DELIVERY_OUTBOUND"
	TypeTransferIn       TransactionType = "TRANSFER_IN"
	TypeTransferOut      TransactionType = "TRANSFER_OUT"
)

// IsAcquisition reports whether the type opens a new FIFO lot.
func (t TransactionType) IsAcquisition() bool {
	switch t {
	case TypeBuy, TypeDeliveryInbound, TypeTransferIn:
		return true
	}
	return false
}

// IsDisposal reports whether the type consumes lots oldest-first.
func (t TransactionType) IsDisposal() bool {
	switch t {
	case TypeSell, TypeDeliveryOutbound, TypeTransferOut:
		return true
	}
	return false
}

// MovesShares reports whether the transaction changes a holding's share count.
// Cash movements (nil security) never do.
func (t Transaction) MovesShares() bool {
	return t.SecurityID != nil && !t.Shares.IsZero() &&
		(t.Type.IsAcquisition() || t.Type.IsDisposal())
}

// SourceCorporateAction tags transactions synthesized by an Apply. Import
// duplicate detection skips them and reporting can surface their origin.
const SourceCorporateAction = "corporate-action"

// Transaction is one booking. Transactions are the source of truth: lot state
// for a security must always be reproducible by replaying that security's
// transactions in (Date, Seq) order with no other input.
type Transaction struct {
	ID         int64            `json:"id"`
	OwnerType  OwnerType        `json:"owner_type"`
	OwnerID    int64            `json:"owner_id"`
	SecurityID *int64           `json:"security_id,omitempty"`
	Type       TransactionType  `json:"type"`
	Date       time.Time        `json:"date"`
	Seq        int64            `json:"seq"`
	Shares     numeric.Quantity `json:"shares"`
	Amount     numeric.Money    `json:"amount"`
	Currency   string           `json:"currency"`
	Fee        numeric.Money    `json:"fee"`
	Tax        numeric.Money    `json:"tax"`
	Source     string           `json:"source,omitempty"`
	SourceRef  string           `json:"source_ref,omitempty"`
	Note       string           `json:"note,omitempty"`
}
