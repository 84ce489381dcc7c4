package handler_test

import (
	"net/http"
	"testing"

	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemNumbersAndDuplicates(t *testing.T) {
	en := newEnv(t)
	book := testutil.CreateBook(t, en.db, en.user.ID, "Book")
	url := "/api/books/" + uintStr(book.ID) + "/items"

	var item model.Item
	for _, want := range []string{"ITEM-0001", "ITEM-0002"} {
		code, body := en.do(t, http.MethodPost, url, map[string]any{"description": "Watch"})
		requireStatus(t, http.StatusCreated, code, body)
		decodeBytes(t, body, &item)
		assert.Equal(t, want, item.ItemNumber)
		assert.Equal(t, model.ItemStatusAvailable, item.Status)
	}

	code, body := en.do(t, http.MethodPost, url, map[string]any{"item_number": "ITEM-0002"})
	assert.Equal(t, http.StatusConflict, code, string(body))

	code, _ = en.do(t, http.MethodPost, url, map[string]any{"status": "sold"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListItemsFilters(t *testing.T) {
	en := newEnv(t)
	book := testutil.CreateBook(t, en.db, en.user.ID, "Book")
	a := testutil.CreateItem(t, en.db, book.ID, "ITEM-0001")
	testutil.CreateItem(t, en.db, book.ID, "ITEM-0002")
	require.NoError(t, en.db.Model(a).Updates(map[string]any{"status": model.ItemStatusReserved, "description": "Omega watch"}).Error)

	list := func(query string) []model.Item {
		code, body := en.do(t, http.MethodGet, "/api/books/"+uintStr(book.ID)+"/items"+query, nil)
		requireStatus(t, http.StatusOK, code, body)
		var items []model.Item
		decodeBytes(t, body, &items)
		return items
	}

	assert.Len(t, list(""), 2)
	reserved := list("?status=reserved")
	require.Len(t, reserved, 1)
	assert.Equal(t, a.ID, reserved[0].ID)
	assert.Len(t, list("?q=omega"), 1)

	code, _ := en.do(t, http.MethodGet, "/api/books/"+uintStr(book.ID)+"/items?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSoldStatusIsOwnedBySales(t *testing.T) {
	en := newEnv(t)
	book := testutil.CreateBook(t, en.db, en.user.ID, "Book")
	item := testutil.CreateItem(t, en.db, book.ID, "ITEM-0001")
	url := "/api/items/" + uintStr(item.ID)

	code, _ := en.do(t, http.MethodPut, url, map[string]any{"status": "sold"})
	assert.Equal(t, http.StatusConflict, code)

	code, body := en.do(t, http.MethodPut, url, map[string]any{"status": "reserved", "description": "Reserved"})
	requireStatus(t, http.StatusOK, code, body)

	code, body = en.do(t, http.MethodPost, url+"/sale", map[string]any{"price": "10.00"})
	requireStatus(t, http.StatusCreated, code, body)

	code, _ = en.do(t, http.MethodPut, url, map[string]any{"status": "available"})
	assert.Equal(t, http.StatusConflict, code)

	code, body = en.do(t, http.MethodDelete, url, nil)
	assert.Equal(t, http.StatusConflict, code, string(body))
}

func TestPurchaseUpsert(t *testing.T) {
	en := newEnv(t)
	book := testutil.CreateBook(t, en.db, en.user.ID, "Book")
	item := testutil.CreateItem(t, en.db, book.ID, "ITEM-0001")
	seller := testutil.CreatePerson(t, en.db, en.user.ID, "seller", "Sam")
	url := "/api/items/" + uintStr(item.ID) + "/purchase"

	code, _ := en.do(t, http.MethodGet, url, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := en.do(t, http.MethodPut, url, map[string]any{"seller_id": seller.ID, "price": "40.00", "date": "2024-01-15"})
	requireStatus(t, http.StatusCreated, code, body)

	code, body = en.do(t, http.MethodPut, url, map[string]any{"seller_id": seller.ID, "price": "45.00"})
	requireStatus(t, http.StatusOK, code, body)

	var count int64
	en.db.Model(&model.Purchase{}).Where("item_id = ?", item.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	other, _ := en.otherUser(t)
	foreign := testutil.CreatePerson(t, en.db, other.ID, "seller", "Eve")
	code, _ = en.do(t, http.MethodPut, url, map[string]any{"seller_id": foreign.ID, "price": "1.00"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = en.do(t, http.MethodGet, url, nil)
	requireStatus(t, http.StatusOK, code, body)
	var purchase model.Purchase
	decodeBytes(t, body, &purchase)
	assert.Equal(t, "45.00", purchase.Price.StringFixed(2))
	require.NotNil(t, purchase.Seller)
	assert.Equal(t, "Sam", purchase.Seller.FirstName)

	code, body = en.do(t, http.MethodDelete, url, nil)
	requireStatus(t, http.StatusOK, code, body)
}
