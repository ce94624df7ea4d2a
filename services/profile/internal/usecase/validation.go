package usecase

import (
	"regexp"
	"strings"

	"thsnd/services/profile/internal/entity"

	validator "github.com/go-playground/validator/v10"
)

const (
	msgUsername  = "Username must be 4-20 characters long."
	msgEmail     = "Invalid email address."
	msgPassword  = "Password must be at least 8 characters long."
	msgCustomURL = "Custom URL invalid."
)

var (
	customURLPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,}$`)

	// validator's "email" accepts dotless domains; profiles need a routable one
	emailDomainPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// reservedCustomURLs would be shadowed by fixed routes of the service.
var reservedCustomURLs = map[string]bool{
	"register":             true,
	"login":                true,
	"profile":              true,
	"user":                 true,
	"health":               true,
	"swagger":              true,
	"static":               true,
	"upload-profile-image": true,
	"upload-bg-video":      true,
	"upload-music":         true,
}

func validateCustomURL(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()
	return customURLPattern.MatchString(value) && !reservedCustomURLs[strings.ToLower(value)]
}

func validateEmailDomain(fieldLevel validator.FieldLevel) bool {
	return emailDomainPattern.MatchString(fieldLevel.Field().String())
}

type registrationRule struct {
	field   string
	tag     string
	message string
	value   func(RegisterInput) string
}

// registrationRules run in order; the first failure is reported.
var registrationRules = []registrationRule{
	{"username", "required,min=4,max=20", msgUsername, func(in RegisterInput) string { return in.Username }},
	{"email", "required,email,emaildomain", msgEmail, func(in RegisterInput) string { return in.Email }},
	{"password", "required,min=8", msgPassword, func(in RegisterInput) string { return in.Password }},
	{"customUrl", "required,customurl", msgCustomURL, func(in RegisterInput) string { return in.CustomURL }},
}

type registrationValidator struct {
	validate *validator.Validate
}

func newRegistrationValidator() *registrationValidator {
	validate := validator.New()
	// RegisterValidation only fails for an empty tag or a nil func
	if err := validate.RegisterValidation("customurl", validateCustomURL); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("emaildomain", validateEmailDomain); err != nil {
		panic(err)
	}
	return &registrationValidator{validate: validate}
}

func (v *registrationValidator) Validate(input RegisterInput) error {
	for _, rule := range registrationRules {
		if err := v.validate.Var(rule.value(input), rule.tag); err != nil {
			return entity.NewValidationError(rule.field, rule.message)
		}
	}
	return nil
}
