// internal/catalog/domain.go
package catalog

import (
	"maps"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ItemType is the kind of catalog entry.
type ItemType uint8

const (
	// TypeAny matches every item in queries. It is never stored.
	TypeAny ItemType = iota
	TypeBook
	TypeMovie
	// TypeOther holds rows whose type label is not recognised.
	TypeOther
)

// fold normalises s for case-insensitive comparison of labels.
// Casers are stateful, so each call builds its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// ParseItemType maps a type label to an ItemType, ignoring case and Unicode
// normalisation form. Empty input and the wildcards any/all parse as TypeAny.
func ParseItemType(label string) ItemType {
	switch fold(label) {
	case "", "any", "all":
		return TypeAny
	case "libro", "book", "books", "libros":
		return TypeBook
	case "película", "pelicula", "películas", "peliculas", "movie", "movies", "film":
		return TypeMovie
	default:
		return TypeOther
	}
}

// String returns the canonical storage label.
func (t ItemType) String() string {
	switch t {
	case TypeBook:
		return "Libro"
	case TypeMovie:
		return "Película"
	case TypeOther:
		return "Otro"
	default:
		return ""
	}
}

// Slug returns the lower-case English name used by the HTTP adapter.
func (t ItemType) Slug() string {
	switch t {
	case TypeBook:
		return "book"
	case TypeMovie:
		return "movie"
	case TypeOther:
		return "other"
	default:
		return "any"
	}
}

// Availability is the loan state of an item.
type Availability uint8

const (
	Available Availability = iota
	Loaned
)

// String returns the lower-case state name.
func (a Availability) String() string {
	if a == Loaned {
		return "loaned"
	}
	return "available"
}

// storageLabel is the value written to the disponible column.
func (a Availability) storageLabel() string {
	if a == Loaned {
		return "No"
	}
	return "Sí"
}

// parseAvailability maps a disponible cell to the enum. Empty cells default to
// Available; anything other than an affirmative label counts as Loaned.
func parseAvailability(cell string) Availability {
	switch fold(cell) {
	case "", "sí", "si", "s", "yes", "y", "true", "1", "disponible", "available":
		return Available
	default:
		return Loaned
	}
}

// Item is one catalog row in its normalised internal shape.
type Item struct {
	ID            int
	Type          ItemType
	Title         string
	Creator       string
	Genre         string
	Series        string
	ISBN          string
	Availability  Availability
	BorrowerName  string
	BorrowerEmail string
	// LoanDate is zero when the item has no usable loan date.
	LoanDate time.Time
	// RawLoanDate keeps the stored text when it could not be parsed.
	RawLoanDate string
	// Extra holds columns this package does not model, keyed by header name.
	Extra map[string]string

	typeLabel string
}

// IsLoaned reports whether the item is checked out.
func (i Item) IsLoaned() bool {
	return i.Availability == Loaned
}

// HasLoanDate reports whether the loan date is set, parsed or not.
func (i Item) HasLoanDate() bool {
	return !i.LoanDate.IsZero() || strings.TrimSpace(i.RawLoanDate) != ""
}

// DisplayISBN returns the ISBN for books and "" for every other type.
func (i Item) DisplayISBN() string {
	if i.Type != TypeBook {
		return ""
	}
	return i.ISBN
}

// TypeLabel returns the label the item was stored with, or the canonical one.
func (i Item) TypeLabel() string {
	if i.typeLabel != "" || i.Type == TypeOther {
		return i.typeLabel
	}
	return i.Type.String()
}

// CheckInvariant reports whether availability agrees with the loan fields:
// Available items carry no borrower data, Loaned items have a name and a date.
func (i Item) CheckInvariant() bool {
	if i.IsLoaned() {
		return i.BorrowerName != "" && i.HasLoanDate()
	}
	return i.BorrowerName == "" && i.BorrowerEmail == "" && !i.HasLoanDate()
}

// Lend moves the item to Loaned.
func (i *Item) Lend(name, email string, at time.Time) {
	i.Availability = Loaned
	i.BorrowerName = name
	i.BorrowerEmail = email
	i.LoanDate = at
	i.RawLoanDate = ""
}

// Release moves the item back to Available and clears the loan fields.
func (i *Item) Release() {
	i.Availability = Available
	i.BorrowerName = ""
	i.BorrowerEmail = ""
	i.LoanDate = time.Time{}
	i.RawLoanDate = ""
}

// Clone returns a deep copy.
func (i Item) Clone() Item {
	c := i
	if i.Extra != nil {
		c.Extra = maps.Clone(i.Extra)
	}
	return c
}

// Collection is the full item set plus the column layout it was read with.
type Collection struct {
	Items []Item
	// Columns is the header order used on save.
	Columns []string
}

// Clone returns a deep copy of the collection.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		Items:   make([]Item, len(c.Items)),
		Columns: append([]string(nil), c.Columns...),
	}
	for n, item := range c.Items {
		out.Items[n] = item.Clone()
	}
	return out
}

// Find returns the index of the item with the given id, or -1.
func (c *Collection) Find(id int) int {
	for n := range c.Items {
		if c.Items[n].ID == id {
			return n
		}
	}
	return -1
}

// Stats is the dashboard summary of the catalog.
type Stats struct {
	Total  int `json:"total"`
	Books  int `json:"books"`
	Movies int `json:"movies"`
	Loaned int `json:"loaned"`
}

// Summarize counts items by type and loan state.
func Summarize(items []Item) Stats {
	s := Stats{Total: len(items)}
	for _, item := range items {
		switch item.Type {
		case TypeBook:
			s.Books++
		case TypeMovie:
			s.Movies++
		}
		if item.IsLoaned() {
			s.Loaned++
		}
	}
	return s
}
