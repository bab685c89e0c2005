package registry

import "github.com/spec-kit/asset-marketplace/internal/domain"

// TransactionLog is the append-only per-user history.
type TransactionLog struct {
	history map[domain.ID][]domain.TransactionRecord
}

// NewTransactionLog builds an empty log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{history: make(map[domain.ID][]domain.TransactionRecord)}
}

// Append adds rec to the history of rec.UserID.
func (t *TransactionLog) Append(tx *Tx, rec domain.TransactionRecord) {
	userID := rec.UserID
	t.history[userID] = append(t.history[userID], rec)
	tx.onRollback(func() {
		list := t.history[userID]
		t.history[userID] = list[:len(list)-1]
	})
	tx.touchRecord(rec)
}

// History returns a copy of the records of userID, oldest first.
func (t *TransactionLog) History(userID domain.ID) []domain.TransactionRecord {
	return append([]domain.TransactionRecord(nil), t.history[userID]...)
}
