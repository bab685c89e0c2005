package domain

import "time"

// TransactionKind enumerates entries of a user's history.
type TransactionKind string

const (
	TransactionPurchase TransactionKind = "PURCHASE"
	TransactionSale     TransactionKind = "SALE"
	TransactionTransfer TransactionKind = "TRANSFER"
	TransactionMint     TransactionKind = "MINT"
	// TransactionBurn is declared for completeness; no operation produces it.
	TransactionBurn TransactionKind = "BURN"
)

// TransactionRecord is an immutable history entry.
type TransactionRecord struct {
	UserID  ID
	Kind    TransactionKind
	AssetID ID
	At      time.Time
}
