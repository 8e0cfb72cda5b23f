package types

// Room events broadcast on a request's channel. The union is tagged with an
// explicit Kind so subscribers never have to sniff which optional payload is
// present.

type RoomEventKind string

const (
	RoomEventKindJoined    RoomEventKind = "joined"
	RoomEventKindLeft      RoomEventKind = "left"
	RoomEventKindConfirmed RoomEventKind = "confirmed"
	RoomEventKindDisbanded RoomEventKind = "disbanded"
	RoomEventKindState     RoomEventKind = "state"
)

type RoomEvent struct {
	Kind      RoomEventKind `json:"kind"`
	RequestID string        `json:"requestId"`

	Joined    *RoomJoined    `json:"joined,omitempty"`
	Left      *RoomLeft      `json:"left,omitempty"`
	Confirmed *RoomConfirmed `json:"confirmed,omitempty"`
	Disbanded *RoomDisbanded `json:"disbanded,omitempty"`
	State     *RoomState     `json:"state,omitempty"`
}

type RoomJoined struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type RoomLeft struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type RoomConfirmed struct {
	ConfirmedBy string `json:"confirmedBy"`
}

type RoomDisbanded struct {
	DisbandedBy string `json:"disbandedBy"`
}

// RoomState is the full snapshot recomputed after every room mutation.
type RoomState struct {
	RequestID       string        `json:"requestId"`
	Participants    []Participant `json:"participants"`
	CurrentCount    int           `json:"currentCount"`
	MaxParticipants int           `json:"maxParticipants"`
	IsConfirmed     bool          `json:"isConfirmed"`
}
