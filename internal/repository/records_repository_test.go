package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agro-operations/internal/model"
)

var cropRowColumns = []string{"id", "name", "type", "area", "unit", "location", "planting_date",
	"estimated_harvest_date", "status", "yield", "notes", "responsible_id", "created_at",
	"u.id", "u.name", "u.email", "u.area"}

func TestCropRepo_CreateReloads(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCropRepo(db)

	planted, _ := model.ParseDate("2026-03-01")
	mock.ExpectExec("INSERT INTO crops").
		WithArgs("Maize", "cereal", 2.5, "hectares", "North plot", planted, nil, "sowing", nil, nil, uint64(3)).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.id = ?")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows(cropRowColumns).AddRow(
			11, "Maize", "cereal", "2.50", "hectares", "North plot", planted.Time,
			nil, "sowing", nil, nil, 3, time.Now(),
			3, "Ana", "ana@farm.test", "crops"))

	got, err := repo.Create(context.Background(), &model.Crop{
		Name: "Maize", Type: "cereal", Area: 2.5, Unit: "hectares", Location: "North plot",
		PlantingDate: planted, Status: "sowing", ResponsibleID: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(11), got.ID)
	assert.Equal(t, 2.5, got.Area)
	assert.Nil(t, got.EstimatedHarvestDate)
	assert.Nil(t, got.Yield)
	require.NotNil(t, got.Responsible)
	assert.Equal(t, "Ana", got.Responsible.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCropRepo_DeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM crops WHERE id = ?")).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewCropRepo(db).Delete(context.Background(), 99), ErrNotFound)
}

func TestLivestockRepo_DuplicateTag(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO livestock").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'EC-001' for key 'uq_livestock_tag'"})

	born, _ := model.ParseDate("2024-06-10")
	_, err = NewLivestockRepo(db).Create(context.Background(), &model.Animal{Tag: "EC-001", BirthDate: born})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestLogEntryRepo_UnknownCrop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO log_entries").
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	cropID := uint64(500)
	_, err = NewLogEntryRepo(db).Create(context.Background(), &model.LogEntry{
		Type: "crop", Category: "irrigation", Description: "Watered the north plot",
		Date: time.Now(), CropID: &cropID, RecordedByID: 1,
	})
	assert.ErrorIs(t, err, ErrForeignKey)
}

func TestLogEntryRepo_GetWithReferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "type", "category", "description", "occurred_at", "quantity", "unit",
		"cost", "income", "notes", "crop_id", "livestock_id", "recorded_by_id", "created_at",
		"u.id", "u.name", "c.name", "c.type", "l.tag", "l.type"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.id = ?")).
		WithArgs(uint64(6)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			6, "sale", "market", "Sold twenty sacks", time.Now(), "20.00", "units",
			nil, "150.00", nil, 2, nil, 1, time.Now(),
			1, "Admin", "Maize", "cereal", nil, nil))

	e, err := NewLogEntryRepo(db).GetByID(context.Background(), 6)
	require.NoError(t, err)
	require.NotNil(t, e.Crop)
	assert.Equal(t, "Maize", e.Crop.Name)
	assert.Nil(t, e.Animal)
	assert.Nil(t, e.Cost)
	require.NotNil(t, e.Income)
	assert.Equal(t, 150.0, *e.Income)
	assert.Equal(t, "Admin", e.RecordedBy.Name)
}
