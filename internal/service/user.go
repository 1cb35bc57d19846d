package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

// TennisLevels are the accepted NTRP ratings.
var TennisLevels = []string{
	"1.0", "1.5", "2.0", "2.5", "3.0", "3.5", "4.0",
	"4.5", "5.0", "5.5", "6.0", "6.5", "7.0",
}

const (
	MaxUsernameLength = 30
	DateLayout        = "2006-01-02"
)

// User is the local record of someone who has logged in at least once.
// Optional fields are nil until set.
type User struct {
	ID          string
	ExternalID  string
	Email       *string
	DisplayName *string
	PhotoURL    *string
	PhoneNumber *string
	Username    *string
	Birthday    *time.Time
	Gender      *Gender
	TennisLevel *string
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Completed reports whether the onboarding profile fields are all present.
func (u *User) Completed() bool {
	return u.Birthday != nil &&
		u.Gender != nil &&
		u.TennisLevel != nil &&
		u.Username != nil && *u.Username != ""
}

// ProfileUpdate is the full set of onboarding fields. All are required.
type ProfileUpdate struct {
	Username    string    `validate:"required,max=30,username"`
	Birthday    time.Time `validate:"required"`
	Gender      Gender    `validate:"required,oneof=male female other prefer_not_to_say"`
	TennisLevel string    `validate:"required,oneof=1.0 1.5 2.0 2.5 3.0 3.5 4.0 4.5 5.0 5.5 6.0 6.5 7.0"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidUsername reports whether name is usable as a username.
func ValidUsername(name string) bool {
	return name != "" &&
		len(name) <= MaxUsernameLength &&
		usernamePattern.MatchString(name)
}

func (u ProfileUpdate) validate() error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// ParseBirthday accepts a calendar date or an RFC 3339 timestamp and
// returns the date at UTC midnight.
func ParseBirthday(value string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: birthday must be a date", ErrValidation)
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
