package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("loan request not found")
	ErrInvalidStatus = errors.New("invalid loan request status")
)

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusListed    Status = "LISTED"
	StatusActive    Status = "ACTIVE"
	StatusPaid      Status = "PAID"
	StatusDefaulted Status = "DEFAULTED"
	StatusRejected  Status = "REJECTED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusListed, StatusActive, StatusPaid, StatusDefaulted, StatusRejected:
		return true
	}
	return false
}

// Terminal statuses end the request's lifecycle; requests are never deleted.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusDefaulted || s == StatusRejected
}

// Table: loan_requests
type LoanRequest struct {
	ID                  uint64          `gorm:"primaryKey;column:id" json:"id"`
	BorrowerAddress     string          `gorm:"column:borrower_address;size:42;index" json:"borrower_address"`
	MaxLoan             decimal.Decimal `gorm:"column:max_loan;type:decimal(36,6)" json:"max_loan"`
	MonthlyInterestRate decimal.Decimal `gorm:"column:monthly_interest_rate;type:decimal(10,6)" json:"monthly_interest_rate"`
	InvoiceDueDate      time.Time       `gorm:"column:invoice_due_date" json:"invoice_due_date"`
	Status              Status          `gorm:"column:status;size:16;default:'REQUESTED';index" json:"status"`
	// NFT receipt, set once minted
	TokenID   *int64    `gorm:"column:token_id" json:"token_id,omitempty"`
	TokenURI  *string   `gorm:"column:token_uri;type:text" json:"token_uri,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:modified_at;autoUpdateTime" json:"modified_at"`
}

func (LoanRequest) TableName() string { return "loan_requests" }
