package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func TestLookupVariantsJoinsProducts(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	product := models.Product{Name: "Sona Masoori Rice"}
	require.NoError(t, db.Create(&product).Error)
	small := models.Variant{ProductID: product.ID, Weight: "1kg", Price: decimal.RequireFromString("72.50"), Quantity: 8}
	large := models.Variant{ProductID: product.ID, Weight: "5kg", Price: decimal.RequireFromString("340.00"), Quantity: 2}
	require.NoError(t, db.Create(&small).Error)
	require.NoError(t, db.Create(&large).Error)

	missing := uuid.New()
	got, err := repo.LookupVariants(context.Background(), []uuid.UUID{small.ID, small.ID, large.ID, missing, uuid.Nil})
	require.NoError(t, err)
	require.Len(t, got, 2)

	snap := got[small.ID]
	assert.Equal(t, product.ID, snap.ProductID)
	assert.Equal(t, "Sona Masoori Rice", snap.ProductName)
	assert.Equal(t, "1kg", snap.Weight)
	assert.True(t, snap.Price.Equal(decimal.RequireFromString("72.50")), "price %s", snap.Price)
	assert.Equal(t, 8, snap.Quantity)

	_, ok := got[missing]
	assert.False(t, ok)
}

func TestLookupVariantsEmptyInput(t *testing.T) {
	repo := NewRepository(setupCatalogTestDB(t))
	got, err := repo.LookupVariants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Variant{}))
	return db
}
