package softdelete_test

import (
	"fmt"
	"testing"

	"hozur_backend/internals/helpers/softdelete"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID       uint                  `gorm:"primaryKey"`
	Name     string                `gorm:"column:widget_name"`
	IsActive softdelete.ActiveFlag `gorm:"column:widget_is_active;type:boolean;not null"`
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&[]widget{
		{Name: "a", IsActive: softdelete.Active},
		{Name: "b", IsActive: softdelete.Active},
		{Name: "c", IsActive: softdelete.Archived},
	}).Error)
	return db
}

func TestDefaultReadsHideArchivedRows(t *testing.T) {
	db := openDB(t)

	var rows []widget
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].Name)
	assert.Equal(t, "b", rows[1].Name)

	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	var one widget
	err := db.First(&one, "widget_name = ?", "c").Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrConditionStaysGrouped(t *testing.T) {
	db := openDB(t)

	var rows []widget
	require.NoError(t, db.Or("widget_name = ?", "c").Find(&rows).Error)
	assert.Empty(t, rows)
}

func TestArchiveScopes(t *testing.T) {
	db := openDB(t)

	var all []widget
	require.NoError(t, db.Scopes(softdelete.WithArchived(true)).Find(&all).Error)
	assert.Len(t, all, 3)

	var archived []widget
	require.NoError(t, db.Scopes(softdelete.OnlyArchived("widget_is_active")).Find(&archived).Error)
	require.Len(t, archived, 1)
	assert.Equal(t, "c", archived[0].Name)
	assert.False(t, bool(archived[0].IsActive))
}

func TestUpdatesSkipArchivedRowsUnlessUnscoped(t *testing.T) {
	db := openDB(t)

	res := db.Model(&widget{}).Where("widget_name = ?", "c").Update("widget_name", "c2")
	require.NoError(t, res.Error)
	assert.EqualValues(t, 0, res.RowsAffected)

	res = db.Unscoped().Model(&widget{}).Where("widget_name = ?", "c").Update("widget_is_active", true)
	require.NoError(t, res.Error)
	assert.EqualValues(t, 1, res.RowsAffected)

	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	assert.EqualValues(t, 3, n)
}

func TestDeleteArchivesUnlessUnscoped(t *testing.T) {
	db := openDB(t)

	var a widget
	require.NoError(t, db.Where("widget_name = ?", "a").Take(&a).Error)

	res := db.Delete(&a)
	require.NoError(t, res.Error)
	assert.EqualValues(t, 1, res.RowsAffected)
	assert.False(t, bool(a.IsActive))

	var kept widget
	require.NoError(t, db.Unscoped().Where("id = ?", a.ID).Take(&kept).Error)
	assert.False(t, bool(kept.IsActive), "row is archived, not removed")

	var active []widget
	require.NoError(t, db.Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Name)

	// archiving an archived row is a no-op
	res = db.Delete(&widget{}, kept.ID)
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)

	require.NoError(t, db.Where("widget_name = ?", "b").Delete(&widget{}).Error)
	var n int64
	require.NoError(t, db.Unscoped().Model(&widget{}).Count(&n).Error)
	assert.EqualValues(t, 3, n)

	require.NoError(t, db.Unscoped().Delete(&widget{}, kept.ID).Error)
	require.NoError(t, db.Unscoped().Model(&widget{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}
