package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/agro-operations/internal/model"
	"github.com/iliyamo/agro-operations/internal/queue"
	"github.com/iliyamo/agro-operations/internal/repository"
	"github.com/iliyamo/agro-operations/internal/utils"
)

// Messages shared by several use cases.  Login failures must not reveal
// whether the identifier exists, so both paths use msgInvalidCredentials.
const (
	msgInvalidCredentials = "invalid credentials"
	msgUserExists         = "a user with that email or identity number already exists"
	msgEmailTaken         = "email is already in use by another user"
	msgUserNotFound       = "user not found"
)

// UserStore is the persistence port used by the account use cases.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ExistsByEmailOrIdentity(ctx context.Context, email, identity string) (bool, error)
	EmailTakenByOther(ctx context.Context, email string, excludeID uint64) (bool, error)
	List(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetActive(ctx context.Context, id uint64, active bool) error
}

// TokenIssuer signs session tokens.  *utils.TokenService satisfies it.
type TokenIssuer interface {
	Issue(userID uint64) (utils.SessionToken, error)
}

// Session is what a successful registration or login returns.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      model.Profile
}

// RegisterInput carries the self-registration form.
type RegisterInput struct {
	Name            string
	IdentityNumber  string
	Email           string
	Phone           string
	Area            model.Area
	Role            model.Role
	Password        string
	ConfirmPassword string
}

// ProfileUpdate is a partial update; nil fields keep their stored value.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

// AccountService implements registration, login and self-service profile
// management.
type AccountService struct {
	users  UserStore
	tokens TokenIssuer
	cost   int
	events emitter
	log    logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users UserStore, tokens TokenIssuer, bcryptCost int, events EventPublisher, log logrus.FieldLogger) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		cost:   bcryptCost,
		events: newEmitter(events, log),
		log:    log,
	}
}

// Register creates a worker or administrator account and signs it in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Password != in.ConfirmPassword {
		return nil, Validation("passwords do not match",
			FieldError{Field: "confirmPassword", Message: "passwords do not match"})
	}
	if err := checkPassword("password", in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleWorker
	}
	if !in.Role.Valid() {
		return nil, Validation("invalid role", FieldError{Field: "role", Message: "must be worker or administrator"})
	}
	if !in.Area.Valid() {
		return nil, Validation("invalid area", FieldError{Field: "area", Message: "unknown area"})
	}

	exists, err := s.users.ExistsByEmailOrIdentity(ctx, in.Email, in.IdentityNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, Conflict(msgUserExists)
	}

	u := &model.User{
		Name:           strings.TrimSpace(in.Name),
		IdentityNumber: strings.TrimSpace(in.IdentityNumber),
		Email:          in.Email,
		Phone:          strings.TrimSpace(in.Phone),
		Area:           in.Area,
		Role:           in.Role,
		Active:         true,
	}
	if err := u.SetPassword(in.Password, s.cost); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		// A concurrent registration won the race on the unique index.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, Conflict(msgUserExists)
		}
		return nil, err
	}

	sess, err := s.session(u)
	if err != nil {
		return nil, err
	}
	s.events.emit(queue.NewAuditEvent(queue.EventUserRegistered, u.ID, u.ID, u.Email))
	return sess, nil
}

// Login matches identifier against the email or the identity number and
// checks the password.  Unknown identifiers, wrong passwords and inactive
// accounts all fail with the same Unauthorized error.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	u, err := s.users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		// Spend the same bcrypt work as a real comparison.
		utils.VerifyPassword(s.placeholderHash(), password)
		return nil, Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if !u.VerifyPassword(password) || !u.Active {
		return nil, Unauthorized(msgInvalidCredentials)
	}
	return s.session(u)
}

// CurrentUser returns the profile of the authenticated user.
func (s *AccountService) CurrentUser(ctx context.Context, id uint64) (model.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// UpdateProfile applies the non-nil fields of upd to user id.
func (s *AccountService) UpdateProfile(ctx context.Context, id uint64, upd ProfileUpdate) (model.Profile, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.Profile{}, Validation("name cannot be empty", FieldError{Field: "name", Message: "cannot be empty"})
		}
		u.Name = name
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

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Profile{}, Conflict(msgEmailTaken)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return model.Profile{}, NotFound(msgUserNotFound)
		}
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// ChangePassword replaces the password of user id after checking current.
// Input is validated before the store is touched.
func (s *AccountService) ChangePassword(ctx context.Context, id uint64, current, next string) error {
	if current == "" || next == "" {
		return Validation("current and new password are required")
	}
	if err := checkPassword("newPassword", next); err != nil {
		return err
	}

	u, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !u.VerifyPassword(current) {
		return Unauthorized("current password is incorrect")
	}
	if err := u.SetPassword(next, s.cost); err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, u.PasswordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(msgUserNotFound)
		}
		return err
	}
	s.events.emit(queue.NewAuditEvent(queue.EventUserPasswordChanged, u.ID, u.ID, u.Email))
	return nil
}

// AdminSeed describes the bootstrap administrator account.
type AdminSeed struct {
	Name           string
	Email          string
	IdentityNumber string
	Password       string
}

// EnsureAdministrator creates the bootstrap administrator unless a user
// already holds its email.  It reports whether an account was created.
func (s *AccountService) EnsureAdministrator(ctx context.Context, seed AdminSeed) (bool, error) {
	if seed.Email == "" || seed.Password == "" {
		return false, nil
	}
	if err := checkPassword("password", seed.Password); err != nil {
		return false, err
	}
	_, err := s.users.GetByEmail(ctx, seed.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}
	u := &model.User{
		Name:           name,
		IdentityNumber: seed.IdentityNumber,
		Email:          seed.Email,
		Area:           model.AreaAdministration,
		Role:           model.RoleAdministrator,
		Active:         true,
	}
	if err := u.SetPassword(seed.Password, s.cost); err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, Conflict(msgUserExists)
		}
		return false, err
	}
	s.log.WithField("email", u.Email).Info("bootstrap administrator created")
	return true, nil
}

func (s *AccountService) session(u *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok.Token, ExpiresAt: tok.Exp, User: u.Profile()}, nil
}

func (s *AccountService) load(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(msgUserNotFound)
	}
	return u, err
}

func (s *AccountService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("placeholder-password", s.cost)
	})
	return s.dummyHash
}

// checkPassword enforces the minimum length, counted in characters.
func checkPassword(field, plain string) error {
	if utf8.RuneCountInString(plain) < model.MinPasswordLength {
		return Validation("password must be at least 6 characters",
			FieldError{Field: field, Message: "must be at least 6 characters"})
	}
	return nil
}
