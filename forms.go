package session

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// Forms are the single "validate, then submit" shape every console dialog
// follows. Validation runs entirely client-side; a failing form never
// reaches the network.

// LoginForm carries the credentials of a login attempt.
type LoginForm struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// Validate will run validation rules
func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&f.Password,
			validation.Required,
		),
	)
}

// RegisterForm carries a new-account request.
type RegisterForm struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	PasswordConfirm string `form:"password_confirm" json:"password_confirm"`
}

// Validate will run validation rules
func (f RegisterForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&f.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&f.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&f.PasswordConfirm,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(f.Password)),
		),
	)
}

// ForgotPasswordForm starts a password reset flow.
type ForgotPasswordForm struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (f ForgotPasswordForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.Email),
	)
}

// ResetPasswordForm finalizes a reset flow with the emailed token.
type ResetPasswordForm struct {
	Token           string `form:"token" json:"token"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (f ResetPasswordForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Token, validation.Required),
		validation.Field(&f.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&f.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(f.NewPassword)),
		),
	)
}

// ChangePasswordForm rotates the password of a logged-in user.
type ChangePasswordForm struct {
	OldPassword     string `form:"old_password" json:"old_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (f ChangePasswordForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.OldPassword, validation.Required),
		validation.Field(&f.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&f.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(f.NewPassword)),
		),
	)
}

// ValidateStringEquals builds a rule asserting the field matches expected,
// used for password confirmation fields.
func ValidateStringEquals(expected string) validation.RuleFunc {
	return func(value any) error {
		s, ok := value.(string)
		if !ok {
			return errors.New("must be a string")
		}
		if s != expected {
			return errors.New("does not match")
		}
		return nil
	}
}

// ValidatePhoneNumber accepts phone numbers in international format, e.g.
// +34600123456. Empty values pass; pair with validation.Required where the
// field is mandatory.
func ValidatePhoneNumber(value any) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be a string")
	}
	if s == "" {
		return nil
	}
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return errors.New("must be a phone number in international format")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

func validationErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		meta := make(map[string]any, len(verrs))
		for field, ferr := range verrs {
			meta[field] = ferr.Error()
		}
		return goerrors.New(fmt.Sprintf("validation failed: %v", err), goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(meta)
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "validation failed").
		WithCode(goerrors.CodeBadRequest)
}
