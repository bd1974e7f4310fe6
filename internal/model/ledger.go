package model

import (
	"time"

	"github.com/google/uuid"
)

type GemTransactionType string

const (
	GemTxConversion   GemTransactionType = "conversion"
	GemTxPurchase     GemTransactionType = "purchase"
	GemTxRefund       GemTransactionType = "refund"
	GemTxBonus        GemTransactionType = "bonus"
	GemTxPartnerOffer GemTransactionType = "partner_offer"
	GemTxReward       GemTransactionType = "reward"
	GemTxAdminGrant   GemTransactionType = "admin_grant"
	GemTxAdminDeduct  GemTransactionType = "admin_deduct"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
	TxStatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusCompleted, TxStatusFailed, TxStatusCancelled:
		return true
	}
	return false
}

// GemTransaction is an append-only ledger row. Gems is signed: positive
// credits the balance, negative debits it.
type GemTransaction struct {
	ID          uuid.UUID
	UserID      int64
	Type        GemTransactionType
	Points      *int64
	Gems        int64
	Description string
	Status      TransactionStatus
	Metadata    map[string]any
	CreatedAt   time.Time
}

type PointTransaction struct {
	ID        uuid.UUID
	UserID    int64
	Amount    int64
	Reason    string
	CreatedAt time.Time
}

type Balance struct {
	UserID int64
	Points int64
	Gems   int64
}

type ConversionResult struct {
	GemsEarned      int64
	PointsUsed      int64
	NewGemBalance   int64
	NewPointBalance int64
}
