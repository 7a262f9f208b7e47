package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *LoanRequest) error
	GetByID(ctx context.Context, id uint64) (*LoanRequest, error)
	// ListByStatus returns every request in status, newest first.
	ListByStatus(ctx context.Context, status Status) ([]LoanRequest, error)
	UpdateStatus(ctx context.Context, id uint64, status Status) error
}

// StatusUpdater patches a loan request status; implemented by the off-chain client.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id uint64, status Status) error
}
