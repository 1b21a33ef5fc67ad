package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/agro-operations/internal/model"
)

const animalSelect = `SELECT l.id, l.tag, l.type, l.breed, l.birth_date, l.sex, l.initial_weight,
       l.current_weight, l.health_status, l.notes, l.responsible_id, l.active, l.created_at,
       u.id, u.name, u.email, u.area
  FROM livestock l
  JOIN users u ON u.id = l.responsible_id`

// LivestockRepo encapsulates all queries on the `livestock` table.
type LivestockRepo struct {
	db *sql.DB
}

func NewLivestockRepo(db *sql.DB) *LivestockRepo { return &LivestockRepo{db: db} }

func scanAnimal(row rowScanner) (*model.Animal, error) {
	var (
		a       model.Animal
		initial sql.NullFloat64
		current sql.NullFloat64
		notes   sql.NullString
		resp    model.UserSummary
	)
	err := row.Scan(&a.ID, &a.Tag, &a.Type, &a.Breed, &a.BirthDate, &a.Sex, &initial, &current,
		&a.HealthStatus, &notes, &a.ResponsibleID, &a.Active, &a.CreatedAt,
		&resp.ID, &resp.Name, &resp.Email, &resp.Area)
	if err != nil {
		return nil, translate(err)
	}
	a.InitialWeight = floatPtr(initial)
	a.CurrentWeight = floatPtr(current)
	a.Notes = stringPtr(notes)
	a.Responsible = &resp
	return &a, nil
}

// List returns every animal, newest first.
func (r *LivestockRepo) List(ctx context.Context) ([]*model.Animal, error) {
	rows, err := r.db.QueryContext(ctx, animalSelect+" ORDER BY l.created_at DESC, l.id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Animal{}
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns ErrNotFound when no animal has the id.
func (r *LivestockRepo) GetByID(ctx context.Context, id uint64) (*model.Animal, error) {
	return scanAnimal(r.db.QueryRowContext(ctx, animalSelect+" WHERE l.id = ?", id))
}

// Create inserts a. A tag already in use yields ErrDuplicate.
func (r *LivestockRepo) Create(ctx context.Context, a *model.Animal) (*model.Animal, error) {
	const q = `INSERT INTO livestock (tag, type, breed, birth_date, sex, initial_weight, current_weight,
	           health_status, notes, responsible_id, active)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.Tag, a.Type, a.Breed, a.BirthDate, a.Sex,
		nullFloat(a.InitialWeight), nullFloat(a.CurrentWeight), a.HealthStatus, nullString(a.Notes),
		a.ResponsibleID, a.Active)
	if err != nil {
		return nil, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites the editable columns of animal id.
func (r *LivestockRepo) Update(ctx context.Context, id uint64, a *model.Animal) (*model.Animal, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	const q = `UPDATE livestock SET tag = ?, type = ?, breed = ?, birth_date = ?, sex = ?,
	           initial_weight = ?, current_weight = ?, health_status = ?, notes = ?, active = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, a.Tag, a.Type, a.Breed, a.BirthDate, a.Sex,
		nullFloat(a.InitialWeight), nullFloat(a.CurrentWeight), a.HealthStatus, nullString(a.Notes),
		a.Active, id); err != nil {
		return nil, translate(err)
	}
	return r.GetByID(ctx, id)
}

// Delete removes animal id.
func (r *LivestockRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM livestock WHERE id = ?", id)
	if err != nil {
		return translate(err)
	}
	return affected(res)
}
