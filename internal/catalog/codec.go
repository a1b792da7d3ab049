package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Canonical column names of the catalog file.
const (
	colID       = "id"
	colType     = "tipo"
	colTitle    = "titulo"
	colCreator  = "autor"
	colGenre    = "genero"
	colSeries   = "saga"
	colISBN     = "isbn"
	colAvail    = "disponible"
	colBorrower = "prestado_a"
	colEmail    = "email"
	colLoanDate = "fecha_prestamo"
)

// Separator is the field delimiter of the catalog file.
const Separator = ';'

// LoanDateLayout is the format loan dates are written with.
const LoanDateLayout = "2006-01-02 15:04"

// defaultColumns is the layout of a file written from scratch.
var defaultColumns = []string{
	colID, colType, colTitle, colCreator, colGenre, colSeries, colISBN,
	colAvail, colBorrower, colEmail, colLoanDate,
}

// backfill lists the columns older files may lack, with the value injected.
var backfill = []struct {
	column string
	value  string
}{
	{colISBN, ""},
	{colLoanDate, ""},
	{colBorrower, ""},
	{colEmail, ""},
	{colAvail, "Sí"},
}

// headerAliases maps accepted header spellings onto canonical names.
var headerAliases = map[string]string{
	"type":               colType,
	"título":             colTitle,
	"title":              colTitle,
	"author":             colCreator,
	"director":           colCreator,
	"author_or_director": colCreator,
	"género":             colGenre,
	"genre":              colGenre,
	"series":             colSeries,
	"availability":       colAvail,
	"available":          colAvail,
	"borrower":           colBorrower,
	"borrower_name":      colBorrower,
	"borrower_email":     colEmail,
	"fecha_préstamo":     colLoanDate,
	"loan_date":          colLoanDate,
}

// loanDateLayouts are tried in order when reading a loan date.
var loanDateLayouts = []string{
	LoanDateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"02/01/2006 15:04",
	"02/01/2006",
}

var errNoHeader = errors.New("missing header row")

// normalizeHeader trims, lower-cases and resolves aliases for a column name.
func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
	if canonical, ok := headerAliases[name]; ok {
		return canonical
	}
	return name
}

// parseLoanDate parses a stored loan date in loc. ok is false for empty or
// unrecognised text.
func parseLoanDate(text string, loc *time.Location) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range loanDateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// decode reads a semicolon-separated catalog into a Collection.
func decode(r io.Reader, loc *time.Location) (*Collection, error) {
	reader := csv.NewReader(r)
	reader.Comma = Separator
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for n, name := range header {
		columns[n] = normalizeHeader(name)
		present[columns[n]] = true
	}
	if !present[colID] {
		return nil, fmt.Errorf("no %q column", colID)
	}
	layout := append([]string(nil), columns...)
	for _, b := range backfill {
		if !present[b.column] {
			layout = append(layout, b.column)
		}
	}

	coll := &Collection{Columns: layout}
	seen := make(map[int]bool)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(map[string]string, len(layout))
		for _, b := range backfill {
			row[b.column] = b.value
		}
		for n, value := range record {
			if n < len(columns) {
				row[columns[n]] = value
			}
		}

		item, err := itemFromRow(row, columns, loc)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("duplicate id %d", item.ID)
		}
		seen[item.ID] = true
		coll.Items = append(coll.Items, item)
	}
	return coll, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func itemFromRow(row map[string]string, columns []string, loc *time.Location) (Item, error) {
	idText := strings.TrimSpace(row[colID])
	id, err := strconv.Atoi(idText)
	if err != nil {
		// pandas writes integer columns holding blanks as floats.
		f, ferr := strconv.ParseFloat(idText, 64)
		if ferr != nil || f != float64(int(f)) {
			return Item{}, fmt.Errorf("invalid id %q", idText)
		}
		id = int(f)
	}

	typeLabel := strings.TrimSpace(row[colType])
	item := Item{
		ID:            id,
		Type:          ParseItemType(typeLabel),
		Title:         row[colTitle],
		Creator:       row[colCreator],
		Genre:         row[colGenre],
		Series:        row[colSeries],
		ISBN:          strings.TrimSpace(row[colISBN]),
		Availability:  parseAvailability(row[colAvail]),
		BorrowerName:  strings.TrimSpace(row[colBorrower]),
		BorrowerEmail: strings.TrimSpace(row[colEmail]),
		typeLabel:     typeLabel,
	}
	if item.Type == TypeAny {
		item.Type = TypeOther
	}
	if t, ok := parseLoanDate(row[colLoanDate], loc); ok {
		item.LoanDate = t
	} else {
		item.RawLoanDate = strings.TrimSpace(row[colLoanDate])
	}

	for _, name := range columns {
		if isModelled(name) {
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]string)
		}
		item.Extra[name] = row[name]
	}
	return item, nil
}

func isModelled(column string) bool {
	for _, c := range defaultColumns {
		if c == column {
			return true
		}
	}
	return false
}

// encode writes the collection as a semicolon-separated table.
func encode(w io.Writer, coll *Collection) error {
	columns := coll.Columns
	if len(columns) == 0 {
		columns = defaultColumns
	}

	writer := csv.NewWriter(w)
	writer.Comma = Separator
	if err := writer.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, item := range coll.Items {
		for n, column := range columns {
			record[n] = cell(item, column)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cell(item Item, column string) string {
	switch column {
	case colID:
		return strconv.Itoa(item.ID)
	case colType:
		return item.TypeLabel()
	case colTitle:
		return item.Title
	case colCreator:
		return item.Creator
	case colGenre:
		return item.Genre
	case colSeries:
		return item.Series
	case colISBN:
		return item.ISBN
	case colAvail:
		return item.Availability.storageLabel()
	case colBorrower:
		return item.BorrowerName
	case colEmail:
		return item.BorrowerEmail
	case colLoanDate:
		if !item.LoanDate.IsZero() {
			return item.LoanDate.Format(LoanDateLayout)
		}
		return item.RawLoanDate
	default:
		return item.Extra[column]
	}
}
