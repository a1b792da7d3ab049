package circulation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"libracatalog/internal/catalog"
	domainerrors "libracatalog/internal/errors"
	"libracatalog/internal/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

const testCatalog = "id;tipo;titulo;autor;genero;saga;isbn;disponible;prestado_a;email;fecha_prestamo\n" +
	"1;Libro;Cien años de soledad;Gabriel García Márquez;Realismo mágico;;978-0307474728;Sí;;;\n" +
	"2;Película;Alien;Ridley Scott;Ciencia ficción;Alien;;No;Luis Pérez;luis@example.com;2024-04-01 09:30\n" +
	"3;Libro;El Hobbit;J. R. R. Tolkien;Fantasía;Tierra Media;978-0547928227;No;Marta Ruiz;marta@example.com;2024-04-03 12:00\n" +
	"4;Película;Aliens;James Cameron;Ciencia ficción;Alien;;No;Pedro Gil;;fecha rota\n" +
	"5;Libro;Dune;Frank Herbert;Ciencia ficción;Dune;978-0441172719;Sí;;;\n"

var testNow = time.Date(2024, 5, 2, 18, 45, 30, 0, time.UTC)

type fixture struct {
	svc     Service
	store   *catalog.FileStore
	journal *journal.Journal
	path    string
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biblioteca.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	store := catalog.NewFileStore(path, zap.NewNop(), catalog.WithLocation(time.UTC))
	j := journal.New(0)
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	opts.Location = time.UTC
	if mutate != nil {
		mutate(&opts)
	}

	svc, err := NewService(store, j, zap.NewNop(), opts)
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, journal: j, path: path}
}

func (f *fixture) item(t *testing.T, id int) catalog.Item {
	t.Helper()
	coll, err := f.store.Load(context.Background())
	require.NoError(t, err)
	idx := coll.Find(id)
	require.GreaterOrEqual(t, idx, 0)
	return coll.Items[idx]
}

func (f *fixture) fileContents(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(f.path)
	require.NoError(t, err)
	return string(raw)
}

func TestCheckout_LendsAvailableItem(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	loan, err := f.svc.Checkout(ctx, CheckoutRequest{
		ItemID:        5,
		BorrowerName:  "  Ana López ",
		BorrowerEmail: "ana@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, loan.ItemID)
	assert.Equal(t, "Dune", loan.Title)
	assert.Equal(t, "Ana López", loan.BorrowerName)
	assert.Equal(t, time.Date(2024, 5, 2, 18, 45, 0, 0, time.UTC), loan.LoanDate)

	item := f.item(t, 5)
	assert.Equal(t, catalog.Loaned, item.Availability)
	assert.Equal(t, "Ana López", item.BorrowerName)
	assert.Equal(t, "ana@example.com", item.BorrowerEmail)
	assert.Equal(t, loan.LoanDate, item.LoanDate)
	assert.Contains(t, f.fileContents(t), "5;Libro;Dune;Frank Herbert;Ciencia ficción;Dune;978-0441172719;No;Ana López;ana@example.com;2024-05-02 18:45")

	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 5, BorrowerName: "Otro", BorrowerEmail: "otro@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	assert.Equal(t, "Ana López", f.item(t, 5).BorrowerName)
}

func TestCheckout_AcceptsAnyStoredID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "biblioteca.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;tipo;titulo\n0;Libro;Dune\n-3;Película;Heat\n"), 0o644))
	store := catalog.NewFileStore(path, zap.NewNop(), catalog.WithLocation(time.UTC))
	opts := DefaultOptions()
	opts.Now = func() time.Time { return testNow }
	opts.Location = time.UTC
	svc, err := NewService(store, journal.New(0), zap.NewNop(), opts)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []int{0, -3} {
		loan, err := svc.Checkout(ctx, CheckoutRequest{ItemID: id, BorrowerName: "Ana", BorrowerEmail: "ana@example.com"})
		require.NoError(t, err, "item %d", id)
		assert.Equal(t, id, loan.ItemID)

		ret, err := svc.ReturnItem(ctx, id)
		require.NoError(t, err, "item %d", id)
		assert.True(t, ret.Changed)
	}

	_, err = svc.Checkout(ctx, CheckoutRequest{ItemID: 7, BorrowerName: "Ana", BorrowerEmail: "ana@example.com"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCheckout_CheckOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, CheckoutRequest{ItemID: 99})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Loaned items report the transition before any input problem.
	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 2})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)

	var domainErr *domainerrors.Error
	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 1, BorrowerName: "   ", BorrowerEmail: "a@b.c"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	assert.Equal(t, "borrower_name", domainErr.Field)

	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 1, BorrowerName: "Ana"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "borrower_email", domainErr.Field)

	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 1, BorrowerName: "Ana", BorrowerEmail: "ana.example.com"})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "borrower_email", domainErr.Field)

	assert.Equal(t, catalog.Available, f.item(t, 1).Availability)
}

func TestCheckout_OptionalEmail(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequireEmail = false })
	ctx := context.Background()

	loan, err := f.svc.Checkout(ctx, CheckoutRequest{ItemID: 1, BorrowerName: "Ana"})
	require.NoError(t, err)
	assert.Empty(t, loan.BorrowerEmail)
	assert.True(t, f.item(t, 1).CheckInvariant())

	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 5, BorrowerName: "Ana", BorrowerEmail: "nope"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestReturnItem_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	before := f.fileContents(t)

	_, err := f.svc.Checkout(ctx, CheckoutRequest{ItemID: 5, BorrowerName: "Ana López", BorrowerEmail: "ana@example.com"})
	require.NoError(t, err)

	ret, err := f.svc.ReturnItem(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ret.Changed)
	assert.Equal(t, "Dune", ret.Title)

	item := f.item(t, 5)
	assert.Equal(t, catalog.Available, item.Availability)
	assert.Empty(t, item.BorrowerName)
	assert.Empty(t, item.BorrowerEmail)
	assert.False(t, item.HasLoanDate())
	assert.Equal(t, before, f.fileContents(t))
}

func TestReturnItem_StrictRejectsAvailable(t *testing.T) {
	f := newFixture(t, nil)
	before := f.fileContents(t)

	_, err := f.svc.ReturnItem(context.Background(), 1)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeInvalidTransition, domainErr.Code)
	assert.Equal(t, "available", domainErr.From)
	assert.Equal(t, before, f.fileContents(t))

	_, err = f.svc.ReturnItem(context.Background(), 77)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestReturnItem_LenientIgnoresAvailable(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ReturnPolicy = ReturnPolicyLenient })
	before := f.fileContents(t)

	ret, err := f.svc.ReturnItem(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, ret.Changed)
	assert.Equal(t, before, f.fileContents(t))
	assert.Empty(t, f.journal.StreamEvents(context.Background(), 0, 0))
}

type failingSaveRepo struct {
	catalog.Repository
}

func (failingSaveRepo) Save(context.Context, *catalog.Collection) error {
	return domainerrors.StorageWrite("biblioteca.csv", errors.New("disk full"))
}

func TestCheckout_SaveFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, nil)
	svc, err := NewService(failingSaveRepo{Repository: f.store}, f.journal, zap.NewNop(), Options{
		RequireEmail: true,
		Now:          func() time.Time { return testNow },
	})
	require.NoError(t, err)
	before := f.fileContents(t)

	_, err = svc.Checkout(context.Background(), CheckoutRequest{ItemID: 5, BorrowerName: "Ana", BorrowerEmail: "ana@example.com"})
	assert.ErrorIs(t, err, domainerrors.ErrStorageWrite)

	_, err = svc.ReturnItem(context.Background(), 2)
	assert.ErrorIs(t, err, domainerrors.ErrStorageWrite)

	assert.Equal(t, catalog.Available, f.item(t, 5).Availability)
	assert.Equal(t, catalog.Loaned, f.item(t, 2).Availability)
	assert.Equal(t, before, f.fileContents(t))
	assert.Empty(t, f.journal.StreamEvents(context.Background(), 0, 0))
}

func TestCheckout_JournalsEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	loan, err := f.svc.Checkout(ctx, CheckoutRequest{ItemID: 5, BorrowerName: "Ana", BorrowerEmail: "ana@example.com"})
	require.NoError(t, err)
	_, err = f.svc.ReturnItem(ctx, 5)
	require.NoError(t, err)

	events, err := f.svc.Activity(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventItemCheckedOut, events[0].EventType)
	assert.Equal(t, EventItemReturned, events[1].EventType)
	assert.Equal(t, 2, events[1].Version)

	var checkedOut ItemCheckedOutEvent
	require.NoError(t, json.Unmarshal(events[0].EventData, &checkedOut))
	assert.Equal(t, loan.ID, checkedOut.LoanID)

	later, err := f.svc.Activity(ctx, events[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, EventItemReturned, later[0].EventType)
}

func TestItemHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	history, err := f.svc.ItemHistory(ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 5, BorrowerName: "Ana", BorrowerEmail: "ana@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Checkout(ctx, CheckoutRequest{ItemID: 1, BorrowerName: "Luis", BorrowerEmail: "luis@example.com"})
	require.NoError(t, err)
	_, err = f.svc.ReturnItem(ctx, 5)
	require.NoError(t, err)

	history, err = f.svc.ItemHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, EventItemCheckedOut, history[0].EventType)
	assert.Equal(t, EventItemReturned, history[1].EventType)
	assert.Equal(t, []int{1, 2}, []int{history[0].Version, history[1].Version})

	_, err = f.svc.ItemHistory(ctx, 99)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestOverdueReport(t *testing.T) {
	f := newFixture(t, nil)

	overdue, err := f.svc.OverdueReport(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, 2, overdue[0].Item.ID)
	assert.Equal(t, 31, overdue[0].DaysElapsed)

	overdue, err = f.svc.OverdueReport(context.Background(), 29)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, []int{2, 3}, []int{overdue[0].Item.ID, overdue[1].Item.ID})
	assert.Equal(t, 29, overdue[1].DaysElapsed)
}

func TestLoanInvariantHolds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t, func(o *Options) {
			o.ReturnPolicy = rapid.SampledFrom([]ReturnPolicy{ReturnPolicyStrict, ReturnPolicyLenient}).Draw(rt, "policy")
		})
		ctx := context.Background()

		steps := rapid.IntRange(1, 15).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.IntRange(1, 6).Draw(rt, "id")
			if rapid.Bool().Draw(rt, "checkout") {
				_, _ = f.svc.Checkout(ctx, CheckoutRequest{
					ItemID:        id,
					BorrowerName:  rapid.SampledFrom([]string{"", "Ana", "Luis"}).Draw(rt, "name"),
					BorrowerEmail: rapid.SampledFrom([]string{"", "x@y.z", "bad"}).Draw(rt, "email"),
				})
			} else {
				_, _ = f.svc.ReturnItem(ctx, id)
			}

			coll, err := f.store.Load(ctx)
			if err != nil {
				rt.Fatalf("load: %v", err)
			}
			for _, item := range coll.Items {
				if !item.CheckInvariant() {
					rt.Fatalf("item %d violates loan invariant: %+v", item.ID, item)
				}
			}
		}
	})
}
