package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/agro-operations/internal/model"
)

const cropSelect = `SELECT c.id, c.name, c.type, c.area, c.unit, c.location, c.planting_date,
       c.estimated_harvest_date, c.status, c.yield, c.notes, c.responsible_id, c.created_at,
       u.id, u.name, u.email, u.area
  FROM crops c
  JOIN users u ON u.id = c.responsible_id`

// CropRepo encapsulates all queries on the `crops` table.
type CropRepo struct {
	db *sql.DB
}

func NewCropRepo(db *sql.DB) *CropRepo { return &CropRepo{db: db} }

func scanCrop(row rowScanner) (*model.Crop, error) {
	var (
		c       model.Crop
		harvest sql.NullTime
		yield   sql.NullFloat64
		notes   sql.NullString
		resp    model.UserSummary
	)
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Area, &c.Unit, &c.Location, &c.PlantingDate,
		&harvest, &c.Status, &yield, &notes, &c.ResponsibleID, &c.CreatedAt,
		&resp.ID, &resp.Name, &resp.Email, &resp.Area)
	if err != nil {
		return nil, translate(err)
	}
	if harvest.Valid {
		c.EstimatedHarvestDate = &model.Date{Time: harvest.Time}
	}
	c.Yield = floatPtr(yield)
	c.Notes = stringPtr(notes)
	c.Responsible = &resp
	return &c, nil
}

func nullDate(d *model.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// List returns all crops, newest first, with their responsible user.
func (r *CropRepo) List(ctx context.Context) ([]*model.Crop, error) {
	rows, err := r.db.QueryContext(ctx, cropSelect+" ORDER BY c.created_at DESC, c.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Crop{}
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns ErrNotFound when no crop has the id.
func (r *CropRepo) GetByID(ctx context.Context, id uint64) (*model.Crop, error) {
	return scanCrop(r.db.QueryRowContext(ctx, cropSelect+" WHERE c.id = ?", id))
}

// Create inserts c and reloads it so callers receive defaults and the
// responsible summary.
func (r *CropRepo) Create(ctx context.Context, c *model.Crop) (*model.Crop, error) {
	const q = `INSERT INTO crops (name, type, area, unit, location, planting_date,
	           estimated_harvest_date, status, yield, notes, responsible_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Type, c.Area, c.Unit, c.Location, c.PlantingDate,
		nullDate(c.EstimatedHarvestDate), c.Status, nullFloat(c.Yield), nullString(c.Notes), c.ResponsibleID)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites the editable columns of crop id.  The responsible user
// and creation time never change.
func (r *CropRepo) Update(ctx context.Context, id uint64, c *model.Crop) (*model.Crop, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	const q = `UPDATE crops SET name = ?, type = ?, area = ?, unit = ?, location = ?, planting_date = ?,
	           estimated_harvest_date = ?, status = ?, yield = ?, notes = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, c.Name, c.Type, c.Area, c.Unit, c.Location, c.PlantingDate,
		nullDate(c.EstimatedHarvestDate), c.Status, nullFloat(c.Yield), nullString(c.Notes), id); err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes crop id.  Log entries referencing it keep their row with
// crop_id cleared by the foreign key.
func (r *CropRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM crops WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}
