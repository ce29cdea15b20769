package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid user name or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrPayrollAlreadyRun  = errors.New("payroll has already been processed for this leave period")
	ErrSelfDecision       = errors.New("you cannot decide on your own leave application")
	ErrNotInQueue         = errors.New("this leave application is not awaiting your approval")
	ErrOutsideFence       = errors.New("you are outside the office area")
	ErrFaceNotVerified    = errors.New("face verification failed")
	ErrAlreadyCheckedIn   = errors.New("already checked in")
	ErrNotCheckedIn       = errors.New("not checked in")
)

// FieldError is a single failed validation rule on a request field.
type FieldError struct {
	Field string
	Tag   string
}

func (e *FieldError) Error() string {
	if e.Tag == "required" {
		return fmt.Sprintf("%s is required", e.Field)
	}

	return fmt.Sprintf("%s is invalid", e.Field)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidator returns a validator that reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

var defaultValidator = NewValidator()

func (d *Dependens) validate(s any) error {
	v := d.Validator
	if v == nil {
		v = defaultValidator
	}

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		return &FieldError{Field: errs[0].Field(), Tag: errs[0].Tag()}
	}

	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}
