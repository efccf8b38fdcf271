package demo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
)

// MaxContextLength bounds the free-text context field, in characters.
const MaxContextLength = 400

var (
	// ErrSpam is returned when the honeypot field carries a value.
	ErrSpam = errors.New("demo: spam detected")

	phonePattern = regexp.MustCompile(`^[+0-9 ().-]{6,30}$`)
)

// ValidationError carries field-level messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("demo: invalid request: %s", strings.Join(names, ", "))
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	for _, existing := range e.Fields[field] {
		if existing == message {
			return
		}
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Validator decodes raw submissions and enforces the request schema.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a validator with the demo request rules registered.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("consent", func(fl validator.FieldLevel) bool {
		return fl.Field().Bool()
	})
	v.RegisterStructValidation(requestStructLevel, Request{})
	return &Validator{validate: v}
}

func requestStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(Request)
	if req.WantsOtherStandard() && strings.TrimSpace(req.StandardsOther) == "" {
		sl.ReportError(req.StandardsOther, "standardsOther", "StandardsOther", "required_with_other", "")
	}
}

// Parse decodes a JSON payload and validates it. It returns ErrSpam when the
// honeypot is filled, a *ValidationError for schema failures, or the
// normalized request.
func (v *Validator) Parse(raw []byte) (*Request, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, &ValidationError{Fields: map[string][]string{"body": {"must be a JSON object"}}}
	}

	var peek struct {
		Honeypot any `json:"honeypot"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, &ValidationError{Fields: map[string][]string{"body": {"is not valid JSON"}}}
	}
	if honeypotFilled(peek.Honeypot) {
		return nil, ErrSpam
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &ValidationError{Fields: map[string][]string{fieldPath(typeErr.Field): {"has the wrong type"}}}
		}
		return nil, &ValidationError{Fields: map[string][]string{"body": {"is not valid JSON"}}}
	}
	return v.Validate(&req)
}

// Validate normalizes and checks an already-decoded request.
func (v *Validator) Validate(req *Request) (*Request, error) {
	if req == nil {
		return nil, &ValidationError{Fields: map[string][]string{"body": {"is required"}}}
	}
	if strings.TrimSpace(req.Honeypot) != "" {
		return nil, ErrSpam
	}
	req.normalize()

	err := v.validate.Struct(req)
	if err == nil {
		return req, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("demo: validate: %w", err)
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.add(fieldPath(fe.Namespace()), message(fe))
	}
	return nil, verr
}

func honeypotFilled(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		// Anything other than a string means a bot filled it in.
		return true
	}
}

// fieldPath turns "Request.slot1.date" or "standards[2]" into the client-facing
// field key.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 && strings.HasPrefix(namespace, "Request.") {
		namespace = namespace[i+1:]
	}
	if i := strings.Index(namespace, "["); i >= 0 {
		namespace = namespace[:i]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with_other":
		return "is required when \"other\" is selected"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		if fe.Param() == "15:04" {
			return "must be a 24-hour time (HH:MM)"
		}
		return "must be a calendar date (YYYY-MM-DD)"
	case "timezone":
		return "must be a valid IANA time zone"
	case "phone":
		return "must be a valid phone number"
	case "consent":
		return "must be accepted"
	default:
		return "is invalid"
	}
}
