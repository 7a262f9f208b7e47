package vault

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("vault not found")
	ErrPositionNotFound  = errors.New("lender position not found")
	ErrCapacityExceeded  = errors.New("deposit exceeds vault max capacity")
	ErrInvalidTransition = errors.New("vault status may not regress")
	ErrAlreadyRedeemed   = errors.New("lender position already redeemed")
	ErrNotFunding        = errors.New("vault is not accepting deposits")
	ErrInvalidAmount     = errors.New("amount must be greater than 0")
)

// Status is strictly ordered; a vault only ever moves forward.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusFunding  Status = "FUNDING"
	StatusFunded   Status = "FUNDED"
	StatusReleased Status = "RELEASED"
	StatusRepaid   Status = "REPAID"
	StatusRedeemed Status = "REDEEMED"
)

var statusRank = map[Status]int{
	StatusPending:  0,
	StatusFunding:  1,
	StatusFunded:   2,
	StatusReleased: 3,
	StatusRepaid:   4,
	StatusRedeemed: 5,
}

func (s Status) Valid() bool { _, ok := statusRank[s]; return ok }

// CanAdvanceTo reports whether moving from s to next keeps the order (same status is a no-op).
func (s Status) CanAdvanceTo(next Status) bool {
	from, ok1 := statusRank[s]
	to, ok2 := statusRank[next]
	return ok1 && ok2 && to >= from
}

type LenderStatus string

const (
	LenderFunded   LenderStatus = "FUNDED"
	LenderRedeemed LenderStatus = "REDEEMED"
)

// Table: vaults (1:1 with loan_requests)
type Vault struct {
	ID                uint64          `gorm:"primaryKey;column:vault_id" json:"vault_id"`
	LoanRequestID     uint64          `gorm:"column:loan_request_id;uniqueIndex" json:"loan_request_id"`
	Address           string          `gorm:"column:vault_address;size:42;uniqueIndex" json:"vault_address"`
	Name              string          `gorm:"column:vault_name;size:128" json:"vault_name"`
	MaxCapacity       decimal.Decimal `gorm:"column:max_capacity;type:decimal(36,6)" json:"max_capacity"`
	CurrentCapacity   decimal.Decimal `gorm:"column:current_capacity;type:decimal(36,6)" json:"current_capacity"`
	Status            Status          `gorm:"column:status;size:16;default:'PENDING'" json:"status"`
	FundReleaseAt     *time.Time      `gorm:"column:fund_release_at" json:"fund_release_at"`
	FundReleaseTxHash *string         `gorm:"column:fund_release_tx_hash;size:66" json:"fund_release_tx_hash"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:modified_at;autoUpdateTime" json:"modified_at"`
}

func (Vault) TableName() string { return "vaults" }

// Advance moves v to next, refusing any step backwards.
func (v *Vault) Advance(next Status) error {
	if !v.Status.CanAdvanceTo(next) {
		return ErrInvalidTransition
	}
	v.Status = next
	return nil
}

// Table: vault_lenders
type LenderPosition struct {
	ID               uint64          `gorm:"primaryKey;column:lender_id" json:"lender_id"`
	VaultID          uint64          `gorm:"column:vault_id;index" json:"vault_id"`
	LenderAddress    string          `gorm:"column:lender_address;size:42;index" json:"lender_address"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(36,6)" json:"amount"`
	SharesAmount     decimal.Decimal `gorm:"column:shares_amount;type:decimal(48,18)" json:"shares_amount"`
	TxHash           string          `gorm:"column:tx_hash;size:66" json:"tx_hash"`
	Status           LenderStatus    `gorm:"column:status;size:16;default:'FUNDED'" json:"status"`
	RedeemedAmount   decimal.Decimal `gorm:"column:redeemed_amount;type:decimal(36,6)" json:"redeemed_amount"`
	RedemptionTxHash *string         `gorm:"column:redemption_tx_hash;size:66" json:"redemption_tx_hash,omitempty"`
	RedeemedAt       *time.Time      `gorm:"column:redeemed_at" json:"redeemed_at,omitempty"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LenderPosition) TableName() string { return "vault_lenders" }

// Table: vault_repayments (append-only)
type Repayment struct {
	ID        uint64          `gorm:"primaryKey;column:repayment_id" json:"repayment_id"`
	VaultID   uint64          `gorm:"column:vault_id;index" json:"vault_id"`
	Amount    decimal.Decimal `gorm:"column:amount;type:decimal(36,6)" json:"amount"`
	TxHash    string          `gorm:"column:tx_hash;size:66" json:"tx_hash"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Repayment) TableName() string { return "vault_repayments" }
