package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ridematch/ridematch/validator"
)

// User is the authenticated caller identity as injected by the transport.
type User struct {
	ID string
}

type UserProfile struct {
	UserID       string    `db:"user_id"`
	DisplayName  string    `db:"display_name"`
	ProfileImage *string   `db:"profile_image"`
	Bio          *string   `db:"bio"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type UpsertUserProfile struct {
	DisplayName  string
	ProfileImage *string
	Bio          *string

	loggedInUserID string
}

func (in *UpsertUserProfile) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in UpsertUserProfile) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *UpsertUserProfile) Validate() error {
	v := validator.New()

	in.DisplayName = strings.TrimSpace(in.DisplayName)

	if in.DisplayName == "" {
		v.AddError("DisplayName", "Display name is required")
	}
	if utf8.RuneCountInString(in.DisplayName) > 50 {
		v.AddError("DisplayName", "Display name must be less than 50 characters")
	}
	if in.Bio != nil && utf8.RuneCountInString(*in.Bio) > 500 {
		v.AddError("Bio", "Bio must be less than 500 characters")
	}

	return v.AsError()
}
