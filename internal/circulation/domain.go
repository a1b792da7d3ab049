// internal/circulation/domain.go
package circulation

import (
	"fmt"
	"strings"
	"time"

	"libracatalog/internal/catalog"

	"github.com/google/uuid"
)

// ReturnPolicy decides what returning an Available item does.
type ReturnPolicy string

const (
	// ReturnPolicyStrict rejects the return with an invalid transition error.
	ReturnPolicyStrict ReturnPolicy = "strict"
	// ReturnPolicyLenient accepts the return and changes nothing.
	ReturnPolicyLenient ReturnPolicy = "lenient"
)

// ParseReturnPolicy accepts "strict" or "lenient" in any case.
func ParseReturnPolicy(s string) (ReturnPolicy, error) {
	switch p := ReturnPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ReturnPolicyStrict, ReturnPolicyLenient:
		return p, nil
	case "":
		return ReturnPolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown return policy %q", s)
	}
}

// DefaultOverdueDays is the overdue threshold when none is configured.
const DefaultOverdueDays = 30

// Options configure the loan manager.
type Options struct {
	RequireEmail bool
	ReturnPolicy ReturnPolicy
	OverdueDays  int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// Location is the zone loan dates are recorded in; nil means time.Local.
	Location *time.Location
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		RequireEmail: true,
		ReturnPolicy: ReturnPolicyStrict,
		OverdueDays:  DefaultOverdueDays,
	}
}

// CheckoutRequest is the input of a checkout.
type CheckoutRequest struct {
	ItemID        int    `json:"item_id"`
	BorrowerName  string `json:"borrower_name" validate:"required"`
	BorrowerEmail string `json:"borrower_email" validate:"omitempty,contains=@"`
}

// ReturnRequest is the input of a return.
type ReturnRequest struct {
	ItemID int `json:"item_id"`
}

// Loan is the record of a successful checkout.
type Loan struct {
	ID            uuid.UUID `json:"id"`
	ItemID        int       `json:"item_id"`
	Title         string    `json:"title"`
	BorrowerName  string    `json:"borrower_name"`
	BorrowerEmail string    `json:"borrower_email,omitempty"`
	LoanDate      time.Time `json:"loan_date"`
}

// Return is the result of a return.
type Return struct {
	ItemID     int       `json:"item_id"`
	Title      string    `json:"title"`
	ReturnedAt time.Time `json:"returned_at"`
	// Changed is false when a lenient return found the item already Available.
	Changed bool `json:"changed"`
}

// OverdueLoan is a Loaned item past the threshold.
type OverdueLoan struct {
	Item        catalog.Item
	DaysElapsed int
}

// Journal event types.
const (
	EventItemCheckedOut = "ItemCheckedOut"
	EventItemReturned   = "ItemReturned"
)

// ItemCheckedOutEvent is journaled when an item is checked out.
type ItemCheckedOutEvent struct {
	LoanID        uuid.UUID `json:"loan_id"`
	ItemID        int       `json:"item_id"`
	BorrowerName  string    `json:"borrower_name"`
	BorrowerEmail string    `json:"borrower_email,omitempty"`
	LoanDate      time.Time `json:"loan_date"`
}

// ItemReturnedEvent is journaled when an item is returned.
type ItemReturnedEvent struct {
	ItemID       int       `json:"item_id"`
	BorrowerName string    `json:"borrower_name"`
	LoanDate     time.Time `json:"loan_date,omitempty"`
	ReturnedAt   time.Time `json:"returned_at"`
}
