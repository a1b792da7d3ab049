package catalog

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sampleItems(t *testing.T) []Item {
	t.Helper()
	coll, err := decode(strings.NewReader(legacyCatalog), time.UTC)
	require.NoError(t, err)
	return coll.Items
}

func ids(items []Item) []int {
	out := make([]int, len(items))
	for n, item := range items {
		out[n] = item.ID
	}
	return out
}

func TestParseItemType(t *testing.T) {
	tests := map[string]ItemType{
		"":          TypeAny,
		"any":       TypeAny,
		"Libro":     TypeBook,
		"LIBRO":     TypeBook,
		"book":      TypeBook,
		"Película":  TypeMovie,
		"PELÍCULA":  TypeMovie,
		"pelicula":  TypeMovie,
		"Movie":     TypeMovie,
		"Revista":   TypeOther,
		"  libro  ": TypeBook,
	}
	for label, want := range tests {
		assert.Equal(t, want, ParseItemType(label), "label %q", label)
	}
}

func TestParseField(t *testing.T) {
	for _, name := range []string{"title", "Título", "TITULO"} {
		f, err := ParseField(name)
		require.NoError(t, err)
		assert.Equal(t, FieldTitle, f)
	}
	f, err := ParseField("Saga")
	require.NoError(t, err)
	assert.Equal(t, FieldSeries, f)

	_, err = ParseField("publisher")
	assert.Error(t, err)
}

func TestByType(t *testing.T) {
	items := sampleItems(t)

	assert.Equal(t, []int{1, 3, 5}, ids(ByType(items, TypeBook)))
	assert.Equal(t, []int{2, 4}, ids(ByType(items, TypeMovie)))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(ByType(items, TypeAny)))
	assert.Empty(t, ByType(items, TypeOther))
}

func TestFacetValues(t *testing.T) {
	items := sampleItems(t)

	assert.Equal(t, []string{"Alien"}, FacetValues(ByType(items, TypeMovie), FieldSeries))
	assert.Equal(t, []string{"Ciencia ficción", "Fantasía", "Realismo mágico"}, FacetValues(items, FieldGenre))
	assert.Empty(t, FacetValues(ByType(items, TypeMovie), FieldISBN))
	assert.Len(t, FacetValues(ByType(items, TypeBook), FieldISBN), 3)
}

func TestApplyFilters(t *testing.T) {
	items := sampleItems(t)

	got := ApplyFilters(items, Criteria{FieldGenre: "Ciencia ficción"})
	assert.Equal(t, []int{2, 4, 5}, ids(got))

	got = ApplyFilters(items, Criteria{FieldGenre: "Ciencia ficción", FieldSeries: "Alien"})
	assert.Equal(t, []int{2, 4}, ids(got))

	got = ApplyFilters(items, Criteria{FieldCreator: "Nobody"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApplyFilters_MoviesIgnoreISBN(t *testing.T) {
	items := []Item{{ID: 1, Type: TypeMovie, Title: "Heat", ISBN: "123"}}

	assert.Empty(t, ApplyFilters(items, Criteria{FieldISBN: "123"}))
}

func genItem(t *rapid.T, id int) Item {
	return Item{
		ID:      id,
		Type:    rapid.SampledFrom([]ItemType{TypeBook, TypeMovie, TypeOther}).Draw(t, "type"),
		Title:   rapid.SampledFrom([]string{"", "Dune", "Heat", "Alien"}).Draw(t, "title"),
		Creator: rapid.SampledFrom([]string{"", "Herbert", "Mann", "Scott"}).Draw(t, "creator"),
		Genre:   rapid.SampledFrom([]string{"", "Ciencia ficción", "Crimen"}).Draw(t, "genre"),
		Series:  rapid.SampledFrom([]string{"", "Dune", "Alien"}).Draw(t, "series"),
		ISBN:    rapid.SampledFrom([]string{"", "978-1", "978-2"}).Draw(t, "isbn"),
	}
}

func genItems(t *rapid.T) []Item {
	n := rapid.IntRange(0, 20).Draw(t, "n")
	items := make([]Item, n)
	for i := range items {
		items[i] = genItem(t, i+1)
	}
	return items
}

func TestFacetValues_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := genItems(t)
		field := rapid.SampledFrom(Fields).Draw(t, "field")

		values := FacetValues(items, field)
		if !slices.IsSorted(values) {
			t.Fatalf("values not sorted: %v", values)
		}
		if slices.Contains(values, "") {
			t.Fatalf("empty value in %v", values)
		}
		if len(slices.Compact(slices.Clone(values))) != len(values) {
			t.Fatalf("duplicate values in %v", values)
		}
		for _, v := range values {
			if len(ApplyFilters(items, Criteria{field: v})) == 0 {
				t.Fatalf("facet value %q selects nothing", v)
			}
		}
	})
}

func TestApplyFilters_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := genItems(t)

		if got := ApplyFilters(items, Criteria{}); !slices.EqualFunc(got, items, func(a, b Item) bool { return a.ID == b.ID }) {
			t.Fatalf("empty criteria changed the list")
		}

		criteria := Criteria{}
		for _, field := range Fields {
			criteria[field] = rapid.SampledFrom([]string{"", "Dune", "Alien", "Mann", "Crimen", "978-1"}).Draw(t, field.String())
		}
		got := ApplyFilters(items, criteria)

		prev := 0
		for _, item := range got {
			if item.ID <= prev {
				t.Fatalf("order not preserved: %v", ids(got))
			}
			prev = item.ID
			for field, want := range criteria {
				if want != "" && field.Value(item) != want {
					t.Fatalf("item %d fails %s=%q", item.ID, field, want)
				}
			}
		}
	})
}

func TestParseQueryType(t *testing.T) {
	tests := []struct {
		label   string
		want    ItemType
		wantErr bool
	}{
		{"", TypeAny, false},
		{"All", TypeAny, false},
		{"book", TypeBook, false},
		{"  Libro ", TypeBook, false},
		{"PELÍCULA", TypeMovie, false},
		{"other", TypeOther, false},
		{"revista", TypeAny, true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseQueryType(tt.label)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
