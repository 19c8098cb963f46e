// internal/app/system/inputval/inputval.go
package inputval

import (
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/pinhub/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their JSON name so clients can map errors to inputs.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return IsValidUsername(fl.Field().String())
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsValidHTTPURL(fl.Field().String())
		})
		_ = v.RegisterValidation("imageref", func(fl validator.FieldLevel) bool {
			return IsValidImageRef(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Result collects per-field validation messages.
type Result struct {
	Fields map[string]string
	order  []string
}

// HasErrors reports whether any field failed.
func (r Result) HasErrors() bool { return len(r.order) > 0 }

// First returns the first failure message, or "".
func (r Result) First() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.Fields[r.order[0]]
}

// Err converts the result to a validation error, or nil when it passed.
func (r Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.ValidationFields(r.First(), r.Fields)
}

// Validate checks s against its `validate` struct tags.
// The `label` tag, when present, names the field in messages.
func Validate(s any) Result {
	res := Result{Fields: map[string]string{}}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.add("_", err.Error())
		return res
	}
	for _, fe := range verrs {
		res.add(fe.Field(), message(labelFor(s, fe), fe))
	}
	return res
}

func (r *Result) add(field, msg string) {
	if _, seen := r.Fields[field]; seen {
		return
	}
	r.Fields[field] = msg
	r.order = append(r.order, field)
}

func labelFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	// StructNamespace is Type.Field[.Nested]; walk it to find the label tag.
	parts := strings.Split(fe.StructNamespace(), ".")
	var sf reflect.StructField
	for i, p := range parts[1:] {
		if t.Kind() != reflect.Struct {
			break
		}
		f, ok := t.FieldByName(strings.SplitN(p, "[", 2)[0])
		if !ok {
			break
		}
		sf = f
		t = f.Type
		for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		if i == len(parts)-2 {
			if l := sf.Tag.Get("label"); l != "" {
				return l
			}
		}
	}
	return fe.Field()
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "username":
		return fmt.Sprintf("%s must be 3-30 letters, numbers, or underscores.", label)
	case "imageref":
		return fmt.Sprintf("%s must be an http(s) URL or an uploaded image path.", label)
	case "httpurl", "url":
		return fmt.Sprintf("%s must be a valid http(s) URL.", label)
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}

// IsValidUsername reports whether s is 3-30 ASCII letters, digits, or underscores.
func IsValidUsername(s string) bool {
	return usernameRe.MatchString(s)
}

// IsValidEmail reports whether s is a bare RFC 5322 address (no display name).
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") || strings.Contains(domain, "..") {
		return false
	}
	return true
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
// Empty input is invalid; callers check optional fields before calling.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidImageRef accepts an absolute http(s) URL or a server-relative path
// such as the URL returned by the upload endpoint.
func IsValidImageRef(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return len(s) > 1 && !strings.ContainsAny(s, " \t\n")
	}
	return IsValidHTTPURL(s)
}
