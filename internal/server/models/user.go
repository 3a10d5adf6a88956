package models

import (
	"fmt"
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/fruitful/internal/common"
)

type User struct {
	ID             string
	Email          string
	FullName       string
	HashedPassword string
	IsSuperuser    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserCreate is the input for creating an account. Signup ignores
// IsSuperuser.
type UserCreate struct {
	Email       string
	FullName    string
	Password    string
	IsSuperuser bool
}

// UserPatch changes only the non-nil fields.
type UserPatch struct {
	Email       *string
	FullName    *string
	Password    *string
	IsSuperuser *bool
}

func (u UserCreate) Validate() error {
	if err := validateEmail(u.Email); err != nil {
		return err
	}
	if err := validateFullName(u.FullName); err != nil {
		return err
	}
	return ValidatePassword(u.Password)
}

func (p UserPatch) Validate() error {
	if p.Email != nil {
		if err := validateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.FullName != nil {
		if err := validateFullName(*p.FullName); err != nil {
			return err
		}
	}
	if p.Password != nil {
		return ValidatePassword(*p.Password)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > common.MaxEmailLength {
		return fmt.Errorf("%w: email must be 1..%d characters", common.ErrorValidation, common.MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	return nil
}

func validateFullName(name string) error {
	if utf8.RuneCountInString(name) > common.MaxFullNameLength {
		return fmt.Errorf("%w: full name is longer than %d characters", common.ErrorValidation, common.MaxFullNameLength)
	}
	return nil
}

func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < common.MinPasswordLength || n > common.MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d..%d characters", common.ErrorValidation,
			common.MinPasswordLength, common.MaxPasswordLength)
	}
	return nil
}
