package collection

import (
	"context"
	"testing"

	"github.com/davesrecords/davesrecords/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestExclusionRepository(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.ExcludedAlbum{}))

	repo := NewExclusionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, 1, 30))
	require.NoError(t, repo.Add(ctx, 1, 10))
	require.NoError(t, repo.Add(ctx, 1, 10), "duplicate add succeeds")
	require.NoError(t, repo.Add(ctx, 2, 10))

	ids, err := repo.ListReleaseIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 30}, ids)

	require.NoError(t, repo.Remove(ctx, 1, 10))
	require.NoError(t, repo.Remove(ctx, 1, 10), "removing a missing exclusion succeeds")
	ids, err = repo.ListReleaseIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{30}, ids)

	ids, err = repo.ListReleaseIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10}, ids)
}
