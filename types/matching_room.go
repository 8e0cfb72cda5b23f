package types

import "time"

type MatchingRoomStatus string

const (
	MatchingRoomStatusWaiting   MatchingRoomStatus = "WAITING"
	MatchingRoomStatusConfirmed MatchingRoomStatus = "CONFIRMED"
	MatchingRoomStatusDisbanded MatchingRoomStatus = "DISBANDED"
)

func (s MatchingRoomStatus) String() string {
	return string(s)
}

// MatchingRoom is the holding room tied 1:1 to a matching request. The
// participant list preserves insertion order and the host is always the
// first element from creation on.
type MatchingRoom struct {
	ID                 string             `db:"id"`
	MatchingRequestID  string             `db:"matching_request_id"`
	ParticipantUserIDs []string           `db:"participant_user_ids"`
	Status             MatchingRoomStatus `db:"status"`
	CreatedAt          time.Time          `db:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at"`

	Participants []Participant `db:"-"`
}

// Participant is the hydrated view of one room member. IsHost is computed
// against the parent request's host, never stored.
type Participant struct {
	UserID       string  `json:"userId"`
	DisplayName  string  `json:"displayName"`
	ProfileImage *string `json:"profileImage"`
	IsHost       bool    `json:"isHost"`
}
