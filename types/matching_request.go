package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/validator"
)

type MatchingRequestStatus string

const (
	MatchingRequestStatusOpen      MatchingRequestStatus = "OPEN"
	MatchingRequestStatusWaiting   MatchingRequestStatus = "WAITING"
	MatchingRequestStatusConfirmed MatchingRequestStatus = "CONFIRMED"
	MatchingRequestStatusClosed    MatchingRequestStatus = "CLOSED"
	MatchingRequestStatusExpired   MatchingRequestStatus = "EXPIRED"
)

func (s MatchingRequestStatus) String() string {
	return string(s)
}

const (
	MinParticipants = 2
	MaxParticipants = 8
)

type MatchingRequest struct {
	ID              string                `db:"id"`
	HostUserID      string                `db:"host_user_id"`
	Attraction      string                `db:"attraction"`
	PreferredAt     time.Time             `db:"preferred_at"`
	MaxParticipants int                   `db:"max_participants"`
	Description     *string               `db:"description"`
	Status          MatchingRequestStatus `db:"status"`
	CreatedAt       time.Time             `db:"created_at"`
	UpdatedAt       time.Time             `db:"updated_at"`
	DeletedAt       *time.Time            `db:"deleted_at"`

	HostDisplayName     string `db:"host_display_name"`
	PendingApplications int    `db:"pending_applications"`
}

type CreateMatchingRequest struct {
	Attraction      string
	PreferredAt     time.Time
	MaxParticipants int
	Description     *string

	loggedInUserID string
}

func (in *CreateMatchingRequest) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in CreateMatchingRequest) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *CreateMatchingRequest) Validate() error {
	v := validator.New()

	in.Attraction = strings.TrimSpace(in.Attraction)

	if in.Attraction == "" {
		v.AddError("Attraction", "Attraction is required")
	}
	if utf8.RuneCountInString(in.Attraction) > 100 {
		v.AddError("Attraction", "Attraction must be less than 100 characters")
	}
	if in.PreferredAt.IsZero() {
		v.AddError("PreferredAt", "Preferred date and time is required")
	}
	if !in.PreferredAt.IsZero() && in.PreferredAt.Before(time.Now()) {
		v.AddError("PreferredAt", "Preferred date and time must be in the future")
	}
	if in.MaxParticipants < MinParticipants || in.MaxParticipants > MaxParticipants {
		v.AddError("MaxParticipants", "Max participants must be between 2 and 8")
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > 1000 {
		v.AddError("Description", "Description must be less than 1000 characters")
	}

	return v.AsError()
}

type RetrieveMatchingRequest struct {
	RequestID string
}

func (in *RetrieveMatchingRequest) Validate() error {
	v := validator.New()

	if in.RequestID == "" {
		v.AddError("RequestID", "Request ID is required")
	}
	if !id.Valid(in.RequestID) {
		v.AddError("RequestID", "Request ID is invalid")
	}

	return v.AsError()
}

type ListMatchingRequests struct {
	Attraction string
	From       *time.Time
	To         *time.Time
	HostUserID string
}

type UpdateMatchingRequest struct {
	RequestID       string
	Description     *string
	PreferredAt     *time.Time
	MaxParticipants *int

	loggedInUserID string
}

func (in *UpdateMatchingRequest) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in UpdateMatchingRequest) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *UpdateMatchingRequest) Validate() error {
	v := validator.New()

	if in.RequestID == "" {
		v.AddError("RequestID", "Request ID is required")
	}
	if !id.Valid(in.RequestID) {
		v.AddError("RequestID", "Request ID is invalid")
	}
	if in.PreferredAt != nil && in.PreferredAt.Before(time.Now()) {
		v.AddError("PreferredAt", "Preferred date and time must be in the future")
	}
	if in.MaxParticipants != nil && (*in.MaxParticipants < MinParticipants || *in.MaxParticipants > MaxParticipants) {
		v.AddError("MaxParticipants", "Max participants must be between 2 and 8")
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > 1000 {
		v.AddError("Description", "Description must be less than 1000 characters")
	}

	return v.AsError()
}
