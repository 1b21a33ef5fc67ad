package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/queue"
	"github.com/iliyamo/agro-operations/internal/repository"
)

// UserUpdate is an administrator's partial edit of an account.  The
// password is deliberately absent; it changes only through ResetPassword.
type UserUpdate struct {
	Name           *string
	IdentityNumber *string
	Email          *string
	Phone          *string
	Area           *model.Area
	Role           *model.Role
	Active         *bool
}

// UserAdminService implements the administrator-only user management
// operations.
type UserAdminService struct {
	users  UserStore
	cost   int
	events emitter
}

func NewUserAdminService(users UserStore, bcryptCost int, events EventPublisher, log logrus.FieldLogger) *UserAdminService {
	return &UserAdminService{users: users, cost: bcryptCost, events: newEmitter(events, log)}
}

// List returns every account, newest first.
func (s *UserAdminService) List(ctx context.Context) ([]model.Profile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

// Get returns the account with the given id.
func (s *UserAdminService) Get(ctx context.Context, id uint64) (model.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// Update applies the non-nil fields of upd.  A collision on email or
// identity number yields Conflict.
func (s *UserAdminService) Update(ctx context.Context, actorID, id uint64, upd UserUpdate) (model.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	if upd.Active != nil && !*upd.Active && actorID == id {
		return model.Profile{}, Validation(msgSelfDeactivation)
	}
	wasActive := u.Active

	if upd.Name != nil {
		if u.Name = strings.TrimSpace(*upd.Name); u.Name == "" {
			return model.Profile{}, Validation("name cannot be empty", FieldError{Field: "name", Message: "cannot be empty"})
		}
	}
	if upd.IdentityNumber != nil {
		if u.IdentityNumber = strings.TrimSpace(*upd.IdentityNumber); u.IdentityNumber == "" {
			return model.Profile{}, Validation("identity number cannot be empty",
				FieldError{Field: "identityNumber", Message: "cannot be empty"})
		}
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email != u.Email {
			taken, err := s.users.EmailTakenByOther(ctx, email, u.ID)
			if err != nil {
				return model.Profile{}, err
			}
			if taken {
				return model.Profile{}, Conflict(msgEmailTaken)
			}
		}
		u.Email = email
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Area != nil {
		if !upd.Area.Valid() {
			return model.Profile{}, Validation("invalid area", FieldError{Field: "area", Message: "unknown area"})
		}
		u.Area = *upd.Area
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return model.Profile{}, Validation("invalid role", FieldError{Field: "role", Message: "must be worker or administrator"})
		}
		u.Role = *upd.Role
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}

	if err := s.users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.Profile{}, Conflict(msgUserExists)
		case errors.Is(err, repository.ErrNotFound):
			return model.Profile{}, NotFound(msgUserNotFound)
		}
		return model.Profile{}, err
	}
	if wasActive && !u.Active {
		s.events.emit(queue.NewAuditEvent(queue.EventUserDeactivated, id, actorID, u.Email))
	}
	return u.Profile(), nil
}

const msgSelfDeactivation = "you cannot deactivate your own account"

// Deactivate soft-deletes account id.  The row is kept; existing tokens
// of the account stay valid until they expire.
func (s *UserAdminService) Deactivate(ctx context.Context, actorID, id uint64) error {
	if actorID == id {
		return Validation(msgSelfDeactivation)
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(msgUserNotFound)
		}
		return err
	}
	s.events.emit(queue.NewAuditEvent(queue.EventUserDeactivated, id, actorID, u.Email))
	return nil
}

// ResetPassword sets a new password for account id without requiring the
// current one.
func (s *UserAdminService) ResetPassword(ctx context.Context, actorID, id uint64, next string) error {
	if next == "" {
		return Validation("new password is required", FieldError{Field: "newPassword", Message: "is required"})
	}
	if err := checkPassword("newPassword", next); err != nil {
		return err
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := u.SetPassword(next, s.cost); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, u.PasswordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(msgUserNotFound)
		}
		return err
	}
	s.events.emit(queue.NewAuditEvent(queue.EventUserPasswordReset, id, actorID, u.Email))
	return nil
}

func (s *UserAdminService) load(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(msgUserNotFound)
	}
	return u, err
}
