package testutil

import (
	"testing"
	"time"

	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/jwtutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every user made by CreateUser
const TestPassword = "secret-password"

// CreateUser inserts a user with TestPassword
func CreateUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{Email: email, Password: string(hash), Name: email}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Token issues a bearer token for user
func Token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := jwtutil.GenerateToken(user.Email, user.ID)
	require.NoError(t, err)
	return token
}

// CreateBook inserts a book owned by userID
func CreateBook(t *testing.T, db *gorm.DB, userID uint, name string) *model.Book {
	t.Helper()
	book := &model.Book{UserID: userID, Name: name}
	require.NoError(t, db.Create(book).Error)
	return book
}

// CreateItem inserts an available item in a book
func CreateItem(t *testing.T, db *gorm.DB, bookID uint, number string) *model.Item {
	t.Helper()
	item := &model.Item{
		BookID:         bookID,
		ItemNumber:     number,
		Description:    "Item " + number,
		Status:         model.ItemStatusAvailable,
		EstimatedValue: decimal.Zero,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// CreatePerson inserts a person of a seeded type (client, seller, expert)
func CreatePerson(t *testing.T, db *gorm.DB, userID uint, personType, firstName string) *model.Person {
	t.Helper()
	var pt model.PersonType
	require.NoError(t, db.Where("name = ?", personType).First(&pt).Error)

	person := &model.Person{UserID: userID, PersonTypeID: pt.ID, FirstName: firstName}
	require.NoError(t, db.Create(person).Error)
	return person
}

// CreatePurchase records a purchase for an item
func CreatePurchase(t *testing.T, db *gorm.DB, itemID uint, sellerID *uint, price string) *model.Purchase {
	t.Helper()
	purchase := &model.Purchase{
		ItemID:   itemID,
		SellerID: sellerID,
		Price:    decimal.RequireFromString(price),
		Date:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(purchase).Error)
	return purchase
}
