package repository_test

import (
	"context"
	"testing"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newItem(name string, price int64) *model.Item {
	return &model.Item{
		Name:         name,
		NameKey:      model.ItemNameKey(name),
		CurrentPrice: decimal.NewFromInt(price),
		Status:       model.ItemActive,
		CreatedBy:    "user-1",
	}
}

func TestItemRepo_NameKeyIsUnique(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewItemRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newItem("Rice", 1000)))
	err := repo.Create(ctx, newItem("RICE", 900))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := repo.FindByNameKey(ctx, model.ItemNameKey(" rice"))
	require.NoError(t, err)
	assert.Equal(t, "Rice", found.Name)
}

func TestItemRepo_RetiredItemsHiddenFromListAndSearch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewItemRepo(db)
	ctx := context.Background()

	rice := newItem("Rice", 1000)
	require.NoError(t, repo.Create(ctx, rice))
	require.NoError(t, repo.Create(ctx, newItem("Brown Rice", 1200)))
	require.NoError(t, repo.Create(ctx, newItem("Beans", 800)))

	require.NoError(t, repo.Update(ctx, rice.ID, map[string]interface{}{"status": model.ItemRetired}))

	active, err := repo.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hits, err := repo.Search(ctx, "RICE", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Brown Rice", hits[0].Name)

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestItemRepo_SearchEscapesWildcards(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewItemRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newItem("Rice", 1000)))

	hits, err := repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestItemRepo_UpdateMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewItemRepo(db)

	err := repo.Update(context.Background(), newItem("Ghost", 1).ID, map[string]interface{}{"category": "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
