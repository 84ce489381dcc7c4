package handler_test

import (
	"net/http"
	"testing"

	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListBooks(t *testing.T) {
	en := newEnv(t)

	code, body := en.do(t, http.MethodPost, "/api/books", map[string]string{"name": "Watches"})
	requireStatus(t, http.StatusCreated, code, body)

	code, body = en.do(t, http.MethodPost, "/api/books", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, code, string(body))

	other, _ := en.otherUser(t)
	testutil.CreateBook(t, en.db, other.ID, "Not mine")

	rec := testutil.DoJSON(t, en.e, http.MethodGet, "/api/books", en.token, nil)
	requireStatus(t, http.StatusOK, rec.Code, rec.Body.Bytes())
	var books []model.Book
	testutil.DecodeJSON(t, rec, &books)
	require.Len(t, books, 1)
	assert.Equal(t, "Watches", books[0].Name)
}

func TestForeignBookIsHiddenOnReadAndRefusedOnWrite(t *testing.T) {
	en := newEnv(t)
	other, _ := en.otherUser(t)
	book := testutil.CreateBook(t, en.db, other.ID, "Theirs")
	url := "/api/books/" + uintStr(book.ID)

	code, body := en.do(t, http.MethodGet, url, nil)
	assert.Equal(t, http.StatusNotFound, code, string(body))

	code, body = en.do(t, http.MethodPut, url, map[string]string{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, code, string(body))

	code, body = en.do(t, http.MethodDelete, url, nil)
	assert.Equal(t, http.StatusForbidden, code, string(body))

	code, _ = en.do(t, http.MethodGet, "/api/books/999999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteBookWithItemsIsBlocked(t *testing.T) {
	en := newEnv(t)
	book := testutil.CreateBook(t, en.db, en.user.ID, "Rings")
	testutil.CreateItem(t, en.db, book.ID, "ITEM-0001")

	code, body := en.do(t, http.MethodDelete, "/api/books/"+uintStr(book.ID), nil)
	assert.Equal(t, http.StatusConflict, code, string(body))

	empty := testutil.CreateBook(t, en.db, en.user.ID, "Empty")
	code, body = en.do(t, http.MethodDelete, "/api/books/"+uintStr(empty.ID), nil)
	assert.Equal(t, http.StatusOK, code, string(body))
}

func TestBookTypeFieldsDriveItemAttributes(t *testing.T) {
	en := newEnv(t)

	code, body := en.do(t, http.MethodPost, "/api/book-types", map[string]string{"name": "Jewelry"})
	requireStatus(t, http.StatusCreated, code, body)
	var bookType model.BookType
	decodeBytes(t, body, &bookType)

	code, body = en.do(t, http.MethodPost, "/api/book-types/"+uintStr(bookType.ID)+"/fields", map[string]any{
		"key": "karat", "label": "Karat", "field_type": "number", "required": true,
	})
	requireStatus(t, http.StatusCreated, code, body)

	code, body = en.do(t, http.MethodPost, "/api/book-types/"+uintStr(bookType.ID)+"/fields", map[string]any{
		"key": "metal", "label": "Metal", "field_type": "select",
	})
	assert.Equal(t, http.StatusBadRequest, code, string(body))

	code, body = en.do(t, http.MethodPost, "/api/books", map[string]any{"name": "Gold", "book_type_id": bookType.ID})
	requireStatus(t, http.StatusCreated, code, body)
	var book model.Book
	decodeBytes(t, body, &book)
	itemsURL := "/api/books/" + uintStr(book.ID) + "/items"

	// required field missing
	code, body = en.do(t, http.MethodPost, itemsURL, map[string]any{"description": "Ring"})
	assert.Equal(t, http.StatusBadRequest, code, string(body))

	code, body = en.do(t, http.MethodPost, itemsURL, map[string]any{
		"description": "Ring", "attributes": map[string]string{"karat": "eighteen"},
	})
	assert.Equal(t, http.StatusBadRequest, code, string(body))

	code, body = en.do(t, http.MethodPost, itemsURL, map[string]any{
		"description": "Ring", "attributes": map[string]string{"karat": "18"},
	})
	requireStatus(t, http.StatusCreated, code, body)
	var item model.Item
	decodeBytes(t, body, &item)
	assert.Equal(t, "ITEM-0001", item.ItemNumber)
	require.Len(t, item.Attributes, 1)
	assert.Equal(t, "18", item.Attributes[0].Value)
}
