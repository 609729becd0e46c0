package types

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator with the funnel-specific tags registered.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("level", func(fl validator.FieldLevel) bool {
			return Level(fl.Field().String()).Valid()
		})
		_ = validate.RegisterValidation("target_area", func(fl validator.FieldLevel) bool {
			return IsKnownTargetArea(fl.Field().String())
		})
	})
	return validate
}

// SignupRequest is the email-capture form.
type SignupRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// AnswersPatchRequest merges a partial AnswerSet into the funnel.
// RoleText is raw typed text; it never confirms a role on its own.
type AnswersPatchRequest struct {
	RoleText                    *string  `json:"role_text,omitempty" validate:"omitempty,max=120"`
	Level                       *string  `json:"level,omitempty" validate:"omitempty,level"`
	HasPriorInterviewExperience *bool    `json:"has_prior_interview_experience,omitempty"`
	TargetAreas                 []string `json:"target_areas,omitempty" validate:"omitempty,max=6,unique,dive,target_area"`
}

// ToggleTargetAreaRequest adds or removes one improvement tag.
type ToggleTargetAreaRequest struct {
	Tag string `json:"tag" validate:"required,target_area"`
}

// RoleQueryRequest carries the current raw text of the role field.
type RoleQueryRequest struct {
	Text string `json:"text" validate:"max=120"`
}

// Role navigation actions.
const (
	NavigateNext    = "next"
	NavigatePrev    = "prev"
	NavigateConfirm = "confirm"
)

// RoleNavigateRequest moves the highlighted suggestion or confirms it.
type RoleNavigateRequest struct {
	Action string `json:"action" validate:"required,oneof=next prev confirm"`
}

// RoleSelectRequest confirms the suggestion at Index.
type RoleSelectRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// Validate validates the SignupRequest using the validator.
func (r *SignupRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the AnswersPatchRequest using the validator.
func (r *AnswersPatchRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the ToggleTargetAreaRequest using the validator.
func (r *ToggleTargetAreaRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RoleQueryRequest using the validator.
func (r *RoleQueryRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RoleNavigateRequest using the validator.
func (r *RoleNavigateRequest) Validate() error {
	return validatorInstance().Struct(r)
}

// Validate validates the RoleSelectRequest using the validator.
func (r *RoleSelectRequest) Validate() error {
	return validatorInstance().Struct(r)
}
