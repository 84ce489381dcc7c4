package attachment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pawnbook-service/internal/model"
	"pawnbook-service/internal/testutil"
)

func addImage(t *testing.T, db *gorm.DB, entityType string, entityID uint, name string) *model.Image {
	img := &model.Image{
		EntityType: entityType,
		EntityID:   entityID,
		URL:        "https://files.test/" + name,
		StorageKey: name,
		FileName:   name,
	}
	require.NoError(t, AddImage(context.Background(), db, img))
	return img
}

func primaryCount(t *testing.T, db *gorm.DB, entityType string, entityID uint) int64 {
	var n int64
	require.NoError(t, db.Model(&model.Image{}).
		Where("entity_type = ? AND entity_id = ? AND is_primary = ? AND is_deleted = ?", entityType, entityID, true, false).
		Count(&n).Error)
	return n
}

func TestVerifyOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	book := testutil.CreateBook(t, db, owner.ID, "Main")
	item := testutil.CreateItem(t, db, book.ID, "ITEM-0001")
	person := testutil.CreatePerson(t, db, owner.ID, model.PersonTypeSeller, "Sam")
	incident := &model.Incident{ItemID: item.ID, Title: "Crack", Date: time.Now().UTC()}
	require.NoError(t, db.Create(incident).Error)

	cases := []struct {
		entityType string
		entityID   uint
	}{
		{model.EntityItem, item.ID},
		{model.EntityIncident, incident.ID},
		{model.EntityPerson, person.ID},
		{model.EntityUser, owner.ID},
	}
	for _, tc := range cases {
		t.Run(tc.entityType, func(t *testing.T) {
			assert.NoError(t, VerifyOwnership(db, owner.ID, tc.entityType, tc.entityID))
			assert.ErrorIs(t, VerifyOwnership(db, other.ID, tc.entityType, tc.entityID), ErrForbidden)
		})
	}

	assert.ErrorIs(t, VerifyOwnership(db, owner.ID, "book", book.ID), ErrInvalidEntityType)
	assert.ErrorIs(t, VerifyOwnership(db, owner.ID, model.EntityItem, 9999), ErrEntityNotFound)
	assert.ErrorIs(t, VerifyOwnership(db, owner.ID, model.EntityIncident, 9999), ErrEntityNotFound)
	assert.ErrorIs(t, VerifyOwnership(db, owner.ID, model.EntityPerson, 9999), ErrEntityNotFound)
	assert.ErrorIs(t, VerifyOwnership(db, owner.ID, model.EntityItem, 0), ErrEntityNotFound)
}

func TestFirstImageBecomesPrimary(t *testing.T) {
	db := testutil.SetupTestDB(t)

	first := addImage(t, db, model.EntityItem, 1, "a.jpg")
	second := addImage(t, db, model.EntityItem, 1, "b.jpg")
	elsewhere := addImage(t, db, model.EntityItem, 2, "c.jpg")

	assert.True(t, first.IsPrimary)
	assert.Equal(t, 0, first.Position)
	assert.False(t, second.IsPrimary)
	assert.Equal(t, 1, second.Position)
	assert.True(t, elsewhere.IsPrimary)
	assert.Equal(t, int64(1), primaryCount(t, db, model.EntityItem, 1))
}

func TestSetPrimaryKeepsSinglePrimary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := addImage(t, db, model.EntityItem, 1, "a.jpg")
	second := addImage(t, db, model.EntityItem, 1, "b.jpg")
	other := addImage(t, db, model.EntityItem, 2, "c.jpg")

	img, err := SetPrimary(context.Background(), db, second.ID)
	require.NoError(t, err)
	assert.True(t, img.IsPrimary)
	assert.Equal(t, int64(1), primaryCount(t, db, model.EntityItem, 1))

	var reloaded model.Image
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.False(t, reloaded.IsPrimary)
	var otherReloaded model.Image
	require.NoError(t, db.First(&otherReloaded, other.ID).Error)
	assert.True(t, otherReloaded.IsPrimary)

	_, err = SetPrimary(context.Background(), db, 9999)
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestDeletePrimaryPromotesNextAndCompacts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := addImage(t, db, model.EntityPerson, 5, "a.jpg")
	second := addImage(t, db, model.EntityPerson, 5, "b.jpg")
	third := addImage(t, db, model.EntityPerson, 5, "c.jpg")

	deleted, err := DeleteImage(context.Background(), db, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	require.NotNil(t, deleted.DeletedAt)

	live, err := ListImages(db, model.EntityPerson, 5)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, second.ID, live[0].ID)
	assert.True(t, live[0].IsPrimary)
	assert.Equal(t, 0, live[0].Position)
	assert.Equal(t, third.ID, live[1].ID)
	assert.False(t, live[1].IsPrimary)
	assert.Equal(t, 1, live[1].Position)

	var gone model.Image
	require.NoError(t, db.First(&gone, first.ID).Error)
	assert.True(t, gone.IsDeleted)
	assert.NotNil(t, gone.DeletedAt)
	assert.False(t, gone.IsPrimary)

	_, err = DeleteImage(context.Background(), db, first.ID)
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	_, err = SetPrimary(context.Background(), db, first.ID)
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestDeleteNonPrimaryKeepsPrimary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	first := addImage(t, db, model.EntityItem, 3, "a.jpg")
	second := addImage(t, db, model.EntityItem, 3, "b.jpg")
	third := addImage(t, db, model.EntityItem, 3, "c.jpg")

	_, err := DeleteImage(context.Background(), db, second.ID)
	require.NoError(t, err)

	live, err := ListImages(db, model.EntityItem, 3)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, first.ID, live[0].ID)
	assert.True(t, live[0].IsPrimary)
	assert.Equal(t, third.ID, live[1].ID)
	assert.Equal(t, 1, live[1].Position)

	next := addImage(t, db, model.EntityItem, 3, "d.jpg")
	assert.Equal(t, 2, next.Position)
	assert.False(t, next.IsPrimary)
}

func TestReorder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, addImage(t, db, model.EntityItem, 9, fmt.Sprintf("%d.jpg", i)).ID)
	}

	images, err := Reorder(context.Background(), db, model.EntityItem, 9, []uint{ids[2], ids[0], ids[1]})
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, []uint{ids[2], ids[0], ids[1]}, []uint{images[0].ID, images[1].ID, images[2].ID})
	assert.True(t, images[1].IsPrimary)

	_, err = Reorder(context.Background(), db, model.EntityItem, 9, []uint{ids[0], ids[1]})
	assert.ErrorIs(t, err, ErrReorderMismatch)
	_, err = Reorder(context.Background(), db, model.EntityItem, 9, []uint{ids[0], ids[0], ids[1]})
	assert.ErrorIs(t, err, ErrReorderMismatch)
	_, err = Reorder(context.Background(), db, model.EntityItem, 9, []uint{ids[0], ids[1], 9999})
	assert.ErrorIs(t, err, ErrReorderMismatch)
}

func TestPrimaryImages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := addImage(t, db, model.EntityItem, 1, "a.jpg")
	addImage(t, db, model.EntityItem, 1, "b.jpg")
	c := addImage(t, db, model.EntityItem, 2, "c.jpg")

	primaries, err := PrimaryImages(db, model.EntityItem, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, primaries, 2)
	assert.Equal(t, a.ID, primaries[1].ID)
	assert.Equal(t, c.ID, primaries[2].ID)

	empty, err := PrimaryImages(db, model.EntityItem, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)
	doc := &model.Document{EntityType: model.EntityItem, EntityID: 1, URL: "u", StorageKey: "k", DocumentType: "receipt"}
	require.NoError(t, db.Create(doc).Error)

	deleted, err := DeleteDocument(context.Background(), db, doc.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)

	var stored model.Document
	require.NoError(t, db.First(&stored, doc.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.NotNil(t, stored.DeletedAt)

	_, err = DeleteDocument(context.Background(), db, doc.ID)
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
	_, err = DeleteDocument(context.Background(), db, 9999)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
