// internal/app/system/inputval/inputval.go
//
// Package inputval validates request payloads declared with struct tags:
//
//	type createRoom struct {
//	    Number   string `json:"number" validate:"required,max=20" label:"Room number"`
//	    Capacity int    `json:"capacity" validate:"gte=1,lte=64" label:"Capacity"`
//	}
//
// Messages are phrased for display ("Room number is required.").
package inputval

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/dormhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the failed rules of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the messages as a slice (for JSON error details).
func (r *Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

var cinRe = regexp.MustCompile(`^[A-Z]{1,2}[0-9]{3,8}$`)

// IsValidCIN reports whether s is a normalized national ID number.
func IsValidCIN(s string) bool { return cinRe.MatchString(s) }

// IsValidObjectID reports whether s is a 24-char hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

var (
	once sync.Once
	v    *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("cin", func(fl validator.FieldLevel) bool {
			return IsValidCIN(fl.Field().String())
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.RoleSuperAdmin || s == models.RoleAdmin
		})
		_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == models.GenderMale || s == models.GenderFemale
		})
		_ = v.RegisterValidation("roomgender", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.RoomMale, models.RoomFemale, models.RoomMixed:
				return true
			}
			return false
		})
		_ = v.RegisterValidation("purpose", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case models.PurposeWorkerDelete, models.PurposeConflictResolve, models.PurposeAny:
				return true
			}
			return false
		})
	})
	return v
}

// Validate runs the struct-tag rules on s. Non-struct input yields a
// single error.
func Validate(s any) *Result {
	res := &Result{}
	err := engine().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s may contain at most %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " is not a valid ID."
	case "cin":
		return label + " must look like AB123456."
	case "role":
		return label + " must be superadmin or admin."
	case "gender":
		return label + " must be male or female."
	case "roomgender":
		return label + " must be male, female or mixed."
	case "purpose":
		return label + " is not a known purpose."
	case "datetime":
		return fmt.Sprintf("%s must be a date like %s.", label, fe.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s.", label, fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", label)
}
