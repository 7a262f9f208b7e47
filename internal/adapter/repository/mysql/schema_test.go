package mysql

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// --- SQLite-friendly schema only for tests (decimals as TEXT keep every digit) ---

type loanRequestSQLite struct {
	ID                  uint64    `gorm:"primaryKey;column:id"`
	BorrowerAddress     string    `gorm:"column:borrower_address"`
	MaxLoan             string    `gorm:"type:text;column:max_loan"`
	MonthlyInterestRate string    `gorm:"type:text;column:monthly_interest_rate"`
	InvoiceDueDate      time.Time `gorm:"column:invoice_due_date"`
	Status              string    `gorm:"type:text;column:status"`
	TokenID             *int64    `gorm:"column:token_id"`
	TokenURI            *string   `gorm:"column:token_uri"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:modified_at"`
}

func (loanRequestSQLite) TableName() string { return "loan_requests" }

type vaultSQLite struct {
	ID                uint64     `gorm:"primaryKey;column:vault_id"`
	LoanRequestID     uint64     `gorm:"column:loan_request_id;uniqueIndex"`
	Address           string     `gorm:"column:vault_address;uniqueIndex"`
	Name              string     `gorm:"column:vault_name"`
	MaxCapacity       string     `gorm:"type:text;column:max_capacity"`
	CurrentCapacity   string     `gorm:"type:text;column:current_capacity"`
	Status            string     `gorm:"type:text;column:status"`
	FundReleaseAt     *time.Time `gorm:"column:fund_release_at"`
	FundReleaseTxHash *string    `gorm:"column:fund_release_tx_hash"`
	CreatedAt         time.Time  `gorm:"column:created_at"`
	UpdatedAt         time.Time  `gorm:"column:modified_at"`
}

func (vaultSQLite) TableName() string { return "vaults" }

type lenderSQLite struct {
	ID               uint64     `gorm:"primaryKey;column:lender_id"`
	VaultID          uint64     `gorm:"column:vault_id"`
	LenderAddress    string     `gorm:"column:lender_address"`
	Amount           string     `gorm:"type:text;column:amount"`
	SharesAmount     string     `gorm:"type:text;column:shares_amount"`
	TxHash           string     `gorm:"column:tx_hash"`
	Status           string     `gorm:"type:text;column:status"`
	RedeemedAmount   *string    `gorm:"type:text;column:redeemed_amount"`
	RedemptionTxHash *string    `gorm:"column:redemption_tx_hash"`
	RedeemedAt       *time.Time `gorm:"column:redeemed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
}

func (lenderSQLite) TableName() string { return "vault_lenders" }

type repaymentSQLite struct {
	ID        uint64    `gorm:"primaryKey;column:repayment_id"`
	VaultID   uint64    `gorm:"column:vault_id"`
	Amount    string    `gorm:"type:text;column:amount"`
	TxHash    string    `gorm:"column:tx_hash"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (repaymentSQLite) TableName() string { return "vault_repayments" }

// openTestDB creates an in-memory sqlite DB and migrates ONLY the sqlite-safe schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// one connection: every new :memory: connection is a fresh empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&loanRequestSQLite{}, &vaultSQLite{}, &lenderSQLite{}, &repaymentSQLite{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}
