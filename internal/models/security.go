package models

// Security represents a tradeable instrument tracked by the ledger.
// Identity is immutable; currency and retirement status are maintained by
// external CRUD and are read-only here.
type Security struct {
	ID       int64  `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Retired  bool   `json:"retired"`
}

// Account is a cash account. Merger cash components are credited against the
// holding portfolio's reference account.
type Account struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Portfolio is a securities deposit. Lots are keyed by (portfolio, security).
type Portfolio struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ReferenceAccountID int64  `json:"reference_account_id"`
}
