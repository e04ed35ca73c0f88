package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/resumehub/internal/models"
)

// ResumeValidator checks required fields and bounds embedded images before any write.
// It never rewrites content: free text is stored exactly as submitted and is
// escaped where it is rendered.
type ResumeValidator struct {
	validate      *validator.Validate
	maxImageBytes int
}

// NewResumeValidator creates a validator enforcing maxImageBytes on decoded data URL images.
func NewResumeValidator(maxImageBytes int) *ResumeValidator {
	return &ResumeValidator{
		validate:      validator.New(),
		maxImageBytes: maxImageBytes,
	}
}

// Validate returns ValidationErrors for missing or malformed fields and
// ErrImageTooLarge for oversized training images.
func (v *ResumeValidator) Validate(r *models.Resume) error {
	if err := v.validate.Struct(r); err != nil {
		return asValidationErrors(err)
	}
	for i, t := range r.Training {
		if err := v.CheckImage(t.Image); err != nil {
			return fmt.Errorf("training[%d].image: %w", i, err)
		}
	}
	return nil
}

// ValidateTheme checks the settings of a custom export theme.
func (v *ResumeValidator) ValidateTheme(s models.ThemeSettings) error {
	if err := v.validate.Struct(s); err != nil {
		return asValidationErrors(err)
	}
	return nil
}

func asValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{Field: trimNamespace(fe.Namespace()), Message: fieldMessage(fe)})
	}
	return out
}

// CheckImage enforces the embedded image ceiling. Remote http(s) URLs are not inlined and pass.
func (v *ResumeValidator) CheckImage(src string) error {
	if src == "" {
		return nil
	}
	if !strings.HasPrefix(src, "data:") {
		u, err := url.Parse(src)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationErrors{{Field: "image", Message: "must be a data URL or an http(s) URL"}}
		}
		return nil
	}

	size, err := dataURLSize(src)
	if err != nil {
		return ValidationErrors{{Field: "image", Message: err.Error()}}
	}
	if size > v.maxImageBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrImageTooLarge, size, v.maxImageBytes)
	}
	return nil
}

func (v *ResumeValidator) validEmail(email string) bool {
	return v.validate.Var(email, "required,email") == nil
}

func dataURLSize(src string) (int, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return 0, errors.New("malformed data URL")
	}
	header, payload := src[len("data:"):comma], src[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return 0, errors.New("malformed data URL payload")
		}
		return len(decoded), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return 0, errors.New("malformed base64 image payload")
		}
	}
	return len(decoded), nil
}

// trimNamespace turns "Resume.PersonalInfo.FullName" into "PersonalInfo.FullName".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "hexcolor":
		return "must be a hex color"
	default:
		return fe.Error()
	}
}
