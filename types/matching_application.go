package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/validator"
)

type MatchingApplicationStatus string

const (
	MatchingApplicationStatusPending  MatchingApplicationStatus = "PENDING"
	MatchingApplicationStatusAccepted MatchingApplicationStatus = "ACCEPTED"
	MatchingApplicationStatusRejected MatchingApplicationStatus = "REJECTED"
)

func (s MatchingApplicationStatus) String() string {
	return string(s)
}

type MatchingApplication struct {
	ID                string                    `db:"id"`
	MatchingRequestID string                    `db:"matching_request_id"`
	ApplicantUserID   string                    `db:"applicant_user_id"`
	Message           *string                   `db:"message"`
	Status            MatchingApplicationStatus `db:"status"`
	AppliedAt         time.Time                 `db:"applied_at"`
	UpdatedAt         time.Time                 `db:"updated_at"`

	ApplicantDisplayName string `db:"applicant_display_name"`
}

type ApplyToMatching struct {
	RequestID string
	Message   *string

	loggedInUserID string
}

func (in *ApplyToMatching) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ApplyToMatching) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ApplyToMatching) Validate() error {
	v := validator.New()

	if in.RequestID == "" {
		v.AddError("RequestID", "Request ID is required")
	}
	if !id.Valid(in.RequestID) {
		v.AddError("RequestID", "Request ID is invalid")
	}
	if in.Message != nil {
		trimmed := strings.TrimSpace(*in.Message)
		in.Message = &trimmed
		if utf8.RuneCountInString(trimmed) > 500 {
			v.AddError("Message", "Message must be less than 500 characters")
		}
	}

	return v.AsError()
}

type UpdateApplicationStatus struct {
	ApplicationID string
	Status        MatchingApplicationStatus

	loggedInUserID string
}

func (in *UpdateApplicationStatus) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in UpdateApplicationStatus) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *UpdateApplicationStatus) Validate() error {
	v := validator.New()

	if in.ApplicationID == "" {
		v.AddError("ApplicationID", "Application ID is required")
	}
	if !id.Valid(in.ApplicationID) {
		v.AddError("ApplicationID", "Application ID is invalid")
	}
	if in.Status != MatchingApplicationStatusAccepted && in.Status != MatchingApplicationStatusRejected {
		v.AddError("Status", "Status must be ACCEPTED or REJECTED")
	}

	return v.AsError()
}
