package model

import (
	"time"

	"github.com/iliyamo/agro-operations/internal/utils"
)

// Role is the permission level attached to a user.
type Role string

const (
	RoleWorker        Role = "worker"
	RoleAdministrator Role = "administrator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleWorker || r == RoleAdministrator
}

// Area is the operational area a user works in.
type Area string

const (
	AreaCrops          Area = "crops"
	AreaLivestock      Area = "livestock"
	AreaMaintenance    Area = "maintenance"
	AreaAdministration Area = "administration"
	AreaResearch       Area = "research"
)

// Areas lists every accepted Area value.
var Areas = []Area{AreaCrops, AreaLivestock, AreaMaintenance, AreaAdministration, AreaResearch}

// Valid reports whether a is one of Areas.
func (a Area) Valid() bool {
	for _, v := range Areas {
		if a == v {
			return true
		}
	}
	return false
}

// MinPasswordLength is the shortest plaintext accepted on any write path.
const MinPasswordLength = 6

// User represents an account record as stored in the `users` table.
// The password column only ever holds a bcrypt hash; SetPassword is the
// single place that produces it.
//
// Fields:
//
//	ID             – primary key identifier.
//	Name           – display name.
//	IdentityNumber – unique national identity number.
//	Email          – unique email address.
//	Phone          – contact phone number.
//	Area           – operational area.
//	Role           – worker or administrator.
//	PasswordHash   – bcrypt hash of the latest password.
//	Active         – false once an administrator deactivates the account.
//	CreatedAt      – creation timestamp; there is no update timestamp.
type User struct {
	ID             uint64    // users.id
	Name           string    // users.name
	IdentityNumber string    // users.identity_number
	Email          string    // users.email
	Phone          string    // users.phone
	Area           Area      // users.area
	Role           Role      // users.role
	PasswordHash   string    `json:"-"` // users.password_hash
	Active         bool      // users.active
	CreatedAt      time.Time // users.created_at
}

// SetPassword hashes plain with a fresh salt and replaces the stored
// credential.  On error the previous hash is left untouched so the caller
// can abort its write without persisting a half-updated record.
func (u *User) SetPassword(plain string, cost int) error {
	hash, err := utils.HashPassword(plain, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// VerifyPassword reports whether plain matches the stored credential.
func (u *User) VerifyPassword(plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

// Profile is the credential-free projection of a User returned to clients.
type Profile struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	IdentityNumber string    `json:"identityNumber"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Area           Area      `json:"area"`
	Role           Role      `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile returns the projection of u without its credential.
func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.Name,
		IdentityNumber: u.IdentityNumber,
		Email:          u.Email,
		Phone:          u.Phone,
		Area:           u.Area,
		Role:           u.Role,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
	}
}

// UserSummary is the short user reference embedded in crop, livestock and
// log entry responses.
type UserSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Area  Area   `json:"area,omitempty"`
}
