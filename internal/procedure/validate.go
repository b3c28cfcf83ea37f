package procedure

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// NameMessage is the issue text for role and permission names.
const NameMessage = "Must be at least 3 characters long and only contain alphanumeric, colons, periods, dashes and underscores"

var rbacNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_:\-\.\*]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the custom tags registered:
//
//	notblank  non-empty after trimming whitespace
//	rbacname  role/permission name (pattern plus minimum length 3)
//
// Field names in errors use the JSON tag so issue paths match the wire input.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("rbacname", func(fl validator.FieldLevel) bool {
			return ValidName(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// ValidName reports whether s is an acceptable role or permission name.
func ValidName(s string) bool {
	return len(s) >= 3 && rbacNamePattern.MatchString(s)
}

// ValidIP reports whether s is an IPv4 or IPv6 address.
func ValidIP(s string) bool {
	return Validator().Var(s, "ip") == nil
}

// ValidateStruct runs tag validation on in and converts failures to a BAD_REQUEST error.
func ValidateStruct(in any) error {
	err := Validator().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(Issue{Message: err.Error()})
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{Path: issuePath(fe), Message: issueMessage(fe)})
	}
	return BadRequest(issues...)
}

// issuePath drops the root struct name from the namespace ("Input.name" -> "name").
func issuePath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "Required"
	case "rbacname":
		return NameMessage
	case "ip":
		return fmt.Sprintf("invalid IP address %q", fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("Must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
