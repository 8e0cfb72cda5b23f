package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/validator"
)

// SystemSenderID marks messages generated by the system rather than a user.
const SystemSenderID = ""

type ChatMessageType string

const (
	ChatMessageTypeText     ChatMessageType = "TEXT"
	ChatMessageTypeSystem   ChatMessageType = "SYSTEM"
	ChatMessageTypeImage    ChatMessageType = "IMAGE"
	ChatMessageTypeLocation ChatMessageType = "LOCATION"
)

func (t ChatMessageType) String() string {
	return string(t)
}

type ChatRoom struct {
	ID                 string    `db:"id"`
	Name               string    `db:"name"`
	MatchingRequestID  string    `db:"matching_request_id"`
	ParticipantUserIDs []string  `db:"participant_user_ids"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`

	Participants []Participant `db:"-"`
	LastMessage  *ChatMessage  `db:"-"`
}

type ChatMessage struct {
	ID           string          `db:"id"`
	ChatRoomID   string          `db:"chat_room_id"`
	SenderUserID string          `db:"sender_user_id"`
	Content      string          `db:"content"`
	MessageType  ChatMessageType `db:"message_type"`
	SentAt       time.Time       `db:"sent_at"`

	SenderDisplayName  string  `db:"sender_display_name"`
	SenderProfileImage *string `db:"sender_profile_image"`
}

func (m ChatMessage) IsSystem() bool {
	return m.MessageType == ChatMessageTypeSystem || m.SenderUserID == SystemSenderID
}

type SendChatMessage struct {
	ChatRoomID  string
	Content     string
	MessageType ChatMessageType

	loggedInUserID string
}

func (in *SendChatMessage) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in SendChatMessage) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *SendChatMessage) Validate() error {
	v := validator.New()

	in.Content = strings.TrimSpace(in.Content)

	if in.MessageType == "" {
		in.MessageType = ChatMessageTypeText
	}

	if in.ChatRoomID == "" {
		v.AddError("ChatRoomID", "Chat room ID is required")
	}
	if !id.Valid(in.ChatRoomID) {
		v.AddError("ChatRoomID", "Chat room ID is invalid")
	}
	if in.Content == "" {
		v.AddError("Content", "Content is required")
	}
	if utf8.RuneCountInString(in.Content) > 1000 {
		v.AddError("Content", "Content must be less than 1000 characters")
	}

	switch in.MessageType {
	case ChatMessageTypeText, ChatMessageTypeImage, ChatMessageTypeLocation:
	case ChatMessageTypeSystem:
		v.AddError("MessageType", "System messages cannot be sent directly")
	default:
		v.AddError("MessageType", "Message type is invalid")
	}

	return v.AsError()
}

type ListChatMessages struct {
	ChatRoomID string
	Limit      int

	loggedInUserID string
}

func (in *ListChatMessages) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListChatMessages) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListChatMessages) Validate() error {
	v := validator.New()

	if in.Limit == 0 {
		in.Limit = 50
	}

	if in.ChatRoomID == "" {
		v.AddError("ChatRoomID", "Chat room ID is required")
	}
	if !id.Valid(in.ChatRoomID) {
		v.AddError("ChatRoomID", "Chat room ID is invalid")
	}
	if in.Limit < 0 || in.Limit > 200 {
		v.AddError("Limit", "Limit must be between 1 and 200")
	}

	return v.AsError()
}

type ListChatMessagesSince struct {
	ChatRoomID string
	Since      time.Time

	loggedInUserID string
}

func (in *ListChatMessagesSince) SetLoggedInUserID(userID string) {
	in.loggedInUserID = userID
}

func (in ListChatMessagesSince) LoggedInUserID() string {
	return in.loggedInUserID
}

func (in *ListChatMessagesSince) Validate() error {
	v := validator.New()

	if in.ChatRoomID == "" {
		v.AddError("ChatRoomID", "Chat room ID is required")
	}
	if !id.Valid(in.ChatRoomID) {
		v.AddError("ChatRoomID", "Chat room ID is invalid")
	}
	if in.Since.IsZero() {
		v.AddError("Since", "Since timestamp is required")
	}

	return v.AsError()
}
