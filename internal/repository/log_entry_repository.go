package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/agro-operations/internal/model"
)

const logEntrySelect = `SELECT e.id, e.type, e.category, e.description, e.occurred_at, e.quantity, e.unit,
       e.cost, e.income, e.notes, e.crop_id, e.livestock_id, e.recorded_by_id, e.created_at,
       u.id, u.name,
       c.name, c.type,
       l.tag, l.type
  FROM log_entries e
  JOIN users u ON u.id = e.recorded_by_id
  LEFT JOIN crops c ON c.id = e.crop_id
  LEFT JOIN livestock l ON l.id = e.livestock_id`

// LogEntryRepo encapsulates all queries on the `log_entries` table.
type LogEntryRepo struct {
	db *sql.DB
}

func NewLogEntryRepo(db *sql.DB) *LogEntryRepo { return &LogEntryRepo{db: db} }

func scanLogEntry(row rowScanner) (*model.LogEntry, error) {
	var (
		e                      model.LogEntry
		quantity, cost, income sql.NullFloat64
		unit, notes            sql.NullString
		cropID, animalID       sql.NullInt64
		by                     model.UserSummary
		cropName, cropType     sql.NullString
		animalTag, animalType  sql.NullString
	)
	err := row.Scan(&e.ID, &e.Type, &e.Category, &e.Description, &e.Date, &quantity, &unit,
		&cost, &income, &notes, &cropID, &animalID, &e.RecordedByID, &e.CreatedAt,
		&by.ID, &by.Name, &cropName, &cropType, &animalTag, &animalType)
	if err != nil {
		return nil, translate(err)
	}
	e.Quantity = floatPtr(quantity)
	e.Unit = stringPtr(unit)
	e.Cost = floatPtr(cost)
	e.Income = floatPtr(income)
	e.Notes = stringPtr(notes)
	e.CropID = idPtr(cropID)
	e.AnimalID = idPtr(animalID)
	e.RecordedBy = &by
	if e.CropID != nil && cropName.Valid {
		e.Crop = &model.CropRef{ID: *e.CropID, Name: cropName.String, Type: cropType.String}
	}
	if e.AnimalID != nil && animalTag.Valid {
		e.Animal = &model.AnimalRef{ID: *e.AnimalID, Tag: animalTag.String, Type: animalType.String}
	}
	return &e, nil
}

// List returns every log entry ordered by occurrence, newest first.
func (r *LogEntryRepo) List(ctx context.Context) ([]*model.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, logEntrySelect+" ORDER BY e.occurred_at DESC, e.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.LogEntry{}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns ErrNotFound when no entry has the id.
func (r *LogEntryRepo) GetByID(ctx context.Context, id uint64) (*model.LogEntry, error) {
	return scanLogEntry(r.db.QueryRowContext(ctx, logEntrySelect+" WHERE e.id = ?", id))
}

// Create inserts e.  A crop or animal id that does not exist yields
// ErrForeignKey.
func (r *LogEntryRepo) Create(ctx context.Context, e *model.LogEntry) (*model.LogEntry, error) {
	const q = `INSERT INTO log_entries (type, category, description, occurred_at, quantity, unit,
	           cost, income, notes, crop_id, livestock_id, recorded_by_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.Type, e.Category, e.Description, e.Date.UTC(),
		nullFloat(e.Quantity), nullString(e.Unit), nullFloat(e.Cost), nullFloat(e.Income),
		nullString(e.Notes), nullID(e.CropID), nullID(e.AnimalID), e.RecordedByID)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites the editable columns of entry id.
func (r *LogEntryRepo) Update(ctx context.Context, id uint64, e *model.LogEntry) (*model.LogEntry, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	const q = `UPDATE log_entries SET type = ?, category = ?, description = ?, occurred_at = ?,
	           quantity = ?, unit = ?, cost = ?, income = ?, notes = ?, crop_id = ?, livestock_id = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, e.Type, e.Category, e.Description, e.Date.UTC(),
		nullFloat(e.Quantity), nullString(e.Unit), nullFloat(e.Cost), nullFloat(e.Income),
		nullString(e.Notes), nullID(e.CropID), nullID(e.AnimalID), id); err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes entry id.
func (r *LogEntryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM log_entries WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}
