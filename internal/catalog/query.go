package catalog

import (
	"fmt"
	"slices"
)

// Field is a filterable item attribute.
type Field uint8

const (
	FieldTitle Field = iota + 1
	FieldCreator
	FieldGenre
	FieldSeries
	FieldISBN
)

// Fields lists every facet in display order.
var Fields = []Field{FieldTitle, FieldCreator, FieldGenre, FieldSeries, FieldISBN}

// ParseField resolves a facet name, case-insensitively, in English or Spanish.
func ParseField(name string) (Field, error) {
	switch fold(name) {
	case "title", "titulo", "título":
		return FieldTitle, nil
	case "creator", "author", "director", "autor", "author_or_director":
		return FieldCreator, nil
	case "genre", "genero", "género":
		return FieldGenre, nil
	case "series", "saga":
		return FieldSeries, nil
	case "isbn":
		return FieldISBN, nil
	default:
		return 0, fmt.Errorf("unknown field %q", name)
	}
}

// ParseQueryType resolves the type selector of a query. Labels that
// ParseItemType would file under TypeOther are rejected; "other" selects them
// explicitly.
func ParseQueryType(label string) (ItemType, error) {
	if fold(label) == "other" {
		return TypeOther, nil
	}
	t := ParseItemType(label)
	if t == TypeOther {
		return TypeAny, fmt.Errorf("unknown item type %q", label)
	}
	return t, nil
}

// String returns the English field name.
func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldCreator:
		return "creator"
	case FieldGenre:
		return "genre"
	case FieldSeries:
		return "series"
	case FieldISBN:
		return "isbn"
	default:
		return fmt.Sprintf("field(%d)", uint8(f))
	}
}

// Value returns the item's text for field. ISBN is only reported for books.
func (f Field) Value(item Item) string {
	switch f {
	case FieldTitle:
		return item.Title
	case FieldCreator:
		return item.Creator
	case FieldGenre:
		return item.Genre
	case FieldSeries:
		return item.Series
	case FieldISBN:
		return item.DisplayISBN()
	default:
		return ""
	}
}

// Criteria maps a field to the selected value. Empty values select everything.
type Criteria map[Field]string

// ByType returns the items of type t in their original order. TypeAny keeps all.
func ByType(items []Item, t ItemType) []Item {
	if t == TypeAny {
		return slices.Clone(items)
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// FacetValues returns the distinct non-empty values of field, sorted ascending.
func FacetValues(items []Item, field Field) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, item := range items {
		v := field.Value(item)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

// ApplyFilters keeps the items matching every non-empty criterion exactly.
// Matching items keep their original order.
func ApplyFilters(items []Item, criteria Criteria) []Item {
	active := make([]Field, 0, len(criteria))
	for _, field := range Fields {
		if criteria[field] != "" {
			active = append(active, field)
		}
	}

	out := make([]Item, 0, len(items))
	for _, item := range items {
		if matches(item, criteria, active) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item Item, criteria Criteria, active []Field) bool {
	for _, field := range active {
		if field.Value(item) != criteria[field] {
			return false
		}
	}
	return true
}
