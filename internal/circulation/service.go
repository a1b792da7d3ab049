// internal/circulation/service.go
package circulation

import (
	"context"

	"libracatalog/internal/journal"
)

// Service defines the interface for the loan lifecycle.
type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Loan, error)
	ReturnItem(ctx context.Context, itemID int) (*Return, error)
	// OverdueReport lists overdue loans; thresholdDays <= 0 uses the configured default.
	OverdueReport(ctx context.Context, thresholdDays int) ([]OverdueLoan, error)
	// Activity returns journaled loan events after the given sequence number.
	Activity(ctx context.Context, afterSeq int64, limit int) ([]journal.Event, error)
	// ItemHistory returns the retained loan events of one item, oldest first.
	ItemHistory(ctx context.Context, itemID int) ([]journal.Event, error)
}
