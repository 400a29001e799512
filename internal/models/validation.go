package models

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	MaxClanNameLength        = 64
	MaxClanDescriptionLength = 512
	MinClanTagLength         = 2
	MaxClanTagLength         = 6
)

// Messages are returned to players verbatim
var (
	ErrNameAndTagRequired = errors.New("Name and tag are required")
	ErrInvalidTagLength   = errors.New("Tag length must be 2-6 characters")
	ErrNameTooLong        = errors.New("Name must be at most 64 characters")
	ErrDescriptionTooLong = errors.New("Description must be at most 512 characters")
)

// validate is the validator instance
var validate = validator.New()

// ClanInput is a normalised create or edit payload
type ClanInput struct {
	Name        string
	Tag         string
	Description *string
}

// NormalizeClanInput trims all fields and upper-cases the tag.
// An empty description is treated as absent.
func NormalizeClanInput(name, tag string, description *string) ClanInput {
	in := ClanInput{
		Name: strings.TrimSpace(name),
		Tag:  NormalizeTag(tag),
	}
	if description != nil {
		d := strings.TrimSpace(*description)
		if d != "" {
			in.Description = &d
		}
	}
	return in
}

// NormalizeTag trims and upper-cases a clan tag
func NormalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}

// ValidateClanInput checks a normalised create payload, reporting the first violated rule
func ValidateClanInput(in ClanInput) error {
	if in.Name == "" || in.Tag == "" {
		return ErrNameAndTagRequired
	}
	if err := ValidateTag(in.Tag); err != nil {
		return err
	}
	if err := ValidateName(in.Name); err != nil {
		return err
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > MaxClanDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidateTag checks the length of an already normalised tag
func ValidateTag(tag string) error {
	if err := validate.Var(tag, "min=2,max=6"); err != nil {
		return ErrInvalidTagLength
	}
	return nil
}

// ValidateName checks the length of an already trimmed clan name
func ValidateName(name string) error {
	if name == "" {
		return ErrNameAndTagRequired
	}
	if utf8.RuneCountInString(name) > MaxClanNameLength {
		return ErrNameTooLong
	}
	return nil
}

// ValidateStruct runs struct tag validation for request DTOs
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
