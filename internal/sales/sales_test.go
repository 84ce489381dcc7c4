package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	db   *gorm.DB
	user *model.User
	book *model.Book
}

func newFixture(t *testing.T) *fixture {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateUser(t, db, "seller@example.com")
	return &fixture{db: db, user: user, book: testutil.CreateBook(t, db, user.ID, "Main")}
}

func (f *fixture) sell(items ...LineItem) (*model.Invoice, error) {
	return CreateSale(context.Background(), f.db, CreateInput{
		BookID: f.book.ID,
		UserID: f.user.ID,
		Items:  items,
	})
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestCreateSaleSingleItem(t *testing.T) {
	f := newFixture(t)
	item := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	client := testutil.CreatePerson(t, f.db, f.user.ID, model.PersonTypeClient, "Ana")

	invoice, err := CreateSale(context.Background(), f.db, CreateInput{
		BookID:        f.book.ID,
		UserID:        f.user.ID,
		ClientID:      &client.ID,
		PaymentMethod: "cash",
		Items:         []LineItem{{ItemID: item.ID, Price: price("150.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", invoice.InvoiceNumber)
	assert.Equal(t, "150.00", invoice.TotalAmount.StringFixed(2))
	require.Len(t, invoice.Sales, 1)
	assert.Equal(t, invoice.ID, invoice.Sales[0].InvoiceID)
	assert.Equal(t, client.ID, *invoice.Sales[0].ClientID)

	var stored model.Item
	require.NoError(t, f.db.First(&stored, item.ID).Error)
	assert.Equal(t, model.ItemStatusSold, stored.Status)
}

func TestInvoiceNumbersAreSequentialPerBook(t *testing.T) {
	f := newFixture(t)
	other := testutil.CreateBook(t, f.db, f.user.ID, "Other")

	for i, want := range []string{"INV-001", "INV-002", "INV-003"} {
		item := testutil.CreateItem(t, f.db, f.book.ID, fmt.Sprintf("ITEM-%04d", i+1))
		invoice, err := f.sell(LineItem{ItemID: item.ID, Price: price("10")})
		require.NoError(t, err)
		assert.Equal(t, want, invoice.InvoiceNumber)
	}

	otherItem := testutil.CreateItem(t, f.db, other.ID, "ITEM-0001")
	invoice, err := CreateSale(context.Background(), f.db, CreateInput{
		BookID: other.ID,
		UserID: f.user.ID,
		Items:  []LineItem{{ItemID: otherItem.ID, Price: price("5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", invoice.InvoiceNumber)
}

func TestNumberingContinuesFromLatestInvoice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&model.Invoice{
		BookID:        f.book.ID,
		InvoiceNumber: "INV-041",
		InvoiceDate:   time.Now().UTC(),
		TotalAmount:   decimal.Zero,
	}).Error)

	next, err := NextInvoiceNumber(f.db, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-042", next)
}

func TestCreateSaleRejectsSoldItem(t *testing.T) {
	f := newFixture(t)
	item := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")

	_, err := f.sell(LineItem{ItemID: item.ID, Price: price("20")})
	require.NoError(t, err)

	_, err = f.sell(LineItem{ItemID: item.ID, Price: price("25")})
	require.ErrorIs(t, err, ErrItemAlreadySold)
	assert.Contains(t, err.Error(), "Item is already sold")

	assert.Equal(t, int64(1), countRows(t, f.db, &model.Invoice{}))
	assert.Equal(t, int64(1), countRows(t, f.db, &model.Sale{}))
}

func TestMultiItemSaleIsAtomic(t *testing.T) {
	f := newFixture(t)
	first := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	second := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0002")
	sold := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0003")

	_, err := f.sell(LineItem{ItemID: sold.ID, Price: price("1")})
	require.NoError(t, err)

	_, err = f.sell(
		LineItem{ItemID: first.ID, Price: price("10")},
		LineItem{ItemID: second.ID, Price: price("20")},
		LineItem{ItemID: sold.ID, Price: price("30")},
	)
	require.ErrorIs(t, err, ErrItemAlreadySold)

	assert.Equal(t, int64(1), countRows(t, f.db, &model.Invoice{}))
	assert.Equal(t, int64(1), countRows(t, f.db, &model.Sale{}))

	var statuses []string
	require.NoError(t, f.db.Model(&model.Item{}).Where("id IN ?", []uint{first.ID, second.ID}).
		Pluck("status", &statuses).Error)
	assert.Equal(t, []string{model.ItemStatusAvailable, model.ItemStatusAvailable}, statuses)

	invoice, err := f.sell(
		LineItem{ItemID: first.ID, Price: price("10.25")},
		LineItem{ItemID: second.ID, Price: price("20.50")},
	)
	require.NoError(t, err)
	assert.Equal(t, "INV-002", invoice.InvoiceNumber)
	assert.Equal(t, "30.75", invoice.TotalAmount.StringFixed(2))
	assert.Len(t, invoice.Sales, 2)
	assert.Equal(t, int64(3), countRows(t, f.db, &model.Sale{}))
}

func TestCreateSaleValidation(t *testing.T) {
	f := newFixture(t)
	item := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	foreignBook := testutil.CreateBook(t, f.db, f.user.ID, "Elsewhere")
	foreignItem := testutil.CreateItem(t, f.db, foreignBook.ID, "ITEM-0001")
	stranger := testutil.CreateUser(t, f.db, "stranger@example.com")
	strangerClient := testutil.CreatePerson(t, f.db, stranger.ID, model.PersonTypeClient, "Eve")

	_, err := f.sell()
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = f.sell(LineItem{ItemID: item.ID, Price: price("1")}, LineItem{ItemID: item.ID, Price: price("1")})
	assert.ErrorIs(t, err, ErrDuplicateItem)

	_, err = f.sell(LineItem{ItemID: item.ID, Price: price("-1")})
	assert.ErrorIs(t, err, ErrNegativePrice)

	_, err = f.sell(LineItem{ItemID: 9999, Price: price("1")})
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = f.sell(LineItem{ItemID: foreignItem.ID, Price: price("1")})
	assert.ErrorIs(t, err, ErrItemNotInBook)

	_, err = CreateSale(context.Background(), f.db, CreateInput{
		BookID: f.book.ID, UserID: stranger.ID,
		Items: []LineItem{{ItemID: item.ID, Price: price("1")}},
	})
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = CreateSale(context.Background(), f.db, CreateInput{
		BookID: f.book.ID, UserID: f.user.ID, ClientID: &strangerClient.ID,
		Items: []LineItem{{ItemID: item.ID, Price: price("1")}},
	})
	assert.ErrorIs(t, err, ErrClientNotAllowed)

	_, err = CreateSale(context.Background(), f.db, CreateInput{
		BookID: 9999, UserID: f.user.ID,
		Items: []LineItem{{ItemID: item.ID, Price: price("1")}},
	})
	assert.ErrorIs(t, err, ErrBookNotFound)

	assert.Zero(t, countRows(t, f.db, &model.Invoice{}))
}

func TestDeleteSaleRecalculatesAndDropsEmptyInvoice(t *testing.T) {
	f := newFixture(t)
	first := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	second := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0002")

	invoice, err := f.sell(
		LineItem{ItemID: first.ID, Price: price("40")},
		LineItem{ItemID: second.ID, Price: price("60")},
	)
	require.NoError(t, err)

	deleted, err := DeleteSale(context.Background(), f.db, invoice.Sales[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	var stored model.Invoice
	require.NoError(t, f.db.First(&stored, invoice.ID).Error)
	assert.Equal(t, "60.00", stored.TotalAmount.StringFixed(2))

	var item model.Item
	require.NoError(t, f.db.First(&item, first.ID).Error)
	assert.Equal(t, model.ItemStatusAvailable, item.Status)

	deleted, err = DeleteSale(context.Background(), f.db, invoice.Sales[1].ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Zero(t, countRows(t, f.db, &model.Invoice{}))

	_, err = DeleteSale(context.Background(), f.db, invoice.Sales[1].ID)
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestDeleteInvoiceReleasesItems(t *testing.T) {
	f := newFixture(t)
	first := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	second := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0002")

	invoice, err := f.sell(
		LineItem{ItemID: first.ID, Price: price("1")},
		LineItem{ItemID: second.ID, Price: price("2")},
	)
	require.NoError(t, err)

	require.NoError(t, DeleteInvoice(context.Background(), f.db, invoice.ID))
	assert.Zero(t, countRows(t, f.db, &model.Invoice{}))
	assert.Zero(t, countRows(t, f.db, &model.Sale{}))

	var available int64
	require.NoError(t, f.db.Model(&model.Item{}).Where("status = ?", model.ItemStatusAvailable).Count(&available).Error)
	assert.Equal(t, int64(2), available)

	assert.ErrorIs(t, DeleteInvoice(context.Background(), f.db, invoice.ID), ErrInvoiceNotFound)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	sold := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0001")
	kept := testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0002")
	testutil.CreatePurchase(t, f.db, sold.ID, nil, "100")
	testutil.CreatePurchase(t, f.db, kept.ID, nil, "50")

	_, err := f.sell(LineItem{ItemID: sold.ID, Price: price("180")})
	require.NoError(t, err)

	require.NoError(t, f.db.Create(&model.Cost{
		BookID: f.book.ID, Description: "Stall rent", Amount: price("20"), Date: time.Now().UTC(),
	}).Error)
	require.NoError(t, f.db.Create(&model.Incident{
		ItemID: kept.ID, Title: "Scratch", Cost: price("5"), Date: time.Now().UTC(),
	}).Error)

	s, err := Summarize(context.Background(), f.db, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.ItemCount)
	assert.Equal(t, int64(1), s.AvailableCount)
	assert.Equal(t, int64(1), s.SoldCount)
	assert.Equal(t, int64(1), s.InvoiceCount)
	assert.Equal(t, "150.00", s.PurchaseTotal.StringFixed(2))
	assert.Equal(t, "180.00", s.SalesTotal.StringFixed(2))
	assert.Equal(t, "20.00", s.CostTotal.StringFixed(2))
	assert.Equal(t, "5.00", s.IncidentCost.StringFixed(2))
	assert.Equal(t, "80.00", s.GrossProfit.StringFixed(2))
	assert.Equal(t, "55.00", s.NetProfit.StringFixed(2))
}

func TestNextItemNumber(t *testing.T) {
	f := newFixture(t)

	next, err := NextItemNumber(f.db, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, "ITEM-0001", next)

	testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0007")
	testutil.CreateItem(t, f.db, f.book.ID, "ITEM-0003")
	testutil.CreateItem(t, f.db, f.book.ID, "RING-99")

	next, err = NextItemNumber(f.db, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, "ITEM-0008", next)
}
