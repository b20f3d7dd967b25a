package core

import (
	"github.com/jinzhu/gorm"
)

type Role string

const (
	RoleSampler  Role = "sampler"
	RoleLabAdmin Role = "lab_admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleSampler, RoleLabAdmin:
		return Role(s), true
	}
	return "", false
}

func (r Role) IsAdmin() bool {
	return r == RoleLabAdmin
}

// IsSampler is true for admins as well.
func (r Role) IsSampler() bool {
	return r == RoleSampler || r == RoleLabAdmin
}

// Satisfies reports whether r grants everything required grants.
func (r Role) Satisfies(required Role) bool {
	switch required {
	case RoleLabAdmin:
		return r.IsAdmin()
	case RoleSampler:
		return r.IsSampler()
	}
	return false
}

// swagger:model
type User struct {
	Model
	Email       string   `json:"email" gorm:"type:varchar(255);unique_index"`
	DisplayName string   `json:"display_name"`
	Subject     string   `json:"-" gorm:"type:varchar(255)"`
	Role        Role     `json:"role" gorm:"type:varchar(32)"`
	Password    string   `json:"-"`
	PasswordX   string   `json:"password,omitempty" gorm:"-"`
	Token       string   `json:"token,omitempty" gorm:"-"`
	IsActive    bool     `json:"is_active"`
	LastLoginAt NullTime `json:"last_login_at"`

	Errors map[string]string `json:"-" gorm:"-"`
}

type Users []User

func (User) TableName() string {
	return "system_accounts"
}

// Name is what sample history and the activity log show for the user.
func (user *User) Name() string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}

// Save creates or updates the account. A plain password in PasswordX is hashed.
func (user *User) Save(ormDB *gorm.DB) (bool, error) {
	if user.PasswordX != "" {
		hash, err := HashPassword(user.PasswordX)
		if err != nil {
			return false, err
		}
		user.Password = hash
		user.PasswordX = ""
	}
	user.Email = NormalizeEmail(user.Email)

	if user.ID == 0 {
		if err := ormDB.Set("gorm:save_associations", false).Create(user).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	if user.Password == "" {
		userDB := User{}
		ormDB.Select("password").First(&userDB, user.ID)
		user.Password = userDB.Password
	}
	if err := ormDB.Set("gorm:save_associations", false).Save(user).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (user *User) Validate() bool {
	user.Errors = make(map[string]string)

	if user.Email == "" {
		user.Errors["email"] = "email empty"
	} else if err := ValidateFormat(user.Email); err != nil {
		user.Errors["email"] = err.Error()
	}
	if _, ok := ParseRole(string(user.Role)); !ok {
		user.Errors["role"] = "unknown role"
	}

	return len(user.Errors) == 0
}
