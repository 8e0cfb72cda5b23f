package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/types"
)

const chatRoomCreatedMessage = "Chat room created! Let's plan the day together."

// CreateChatRoomFromRequest materializes the chat room for a confirmed
// holding room, snapshotting its participant set and seeding a system
// message. Idempotent: an existing chat room is returned unchanged.
func (p *Postgres) CreateChatRoomFromRequest(ctx context.Context, requestID string) (types.ChatRoom, error) {
	var out types.ChatRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		existing, err := p.chatRoomByRequestID(ctx, requestID)
		if err == nil {
			out, err = p.hydrateChatRoom(ctx, existing)
			return err
		}
		if !errs.IsNotFound(err) {
			return err
		}

		request, err := p.MatchingRequest(ctx, requestID)
		if err != nil {
			return err
		}

		room, err := p.matchingRoomByRequestID(ctx, requestID, false)
		if errs.IsNotFound(err) {
			return errs.NewConflictError("no confirmed room for this request")
		}
		if err != nil {
			return err
		}

		if room.Status != types.MatchingRoomStatusConfirmed {
			return errs.NewConflictError("chat rooms can only be created from a confirmed room")
		}

		const q = `
			INSERT INTO chat_rooms (id, name, matching_request_id, participant_user_ids)
			VALUES (@chat_room_id, @name, @request_id, @participant_user_ids)
			RETURNING *
		`

		name := fmt.Sprintf("%s - %s", request.Attraction, request.PreferredAt.Format("2006-01-02 15:04"))

		rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
			"chat_room_id":         id.Generate(),
			"name":                 name,
			"request_id":           requestID,
			"participant_user_ids": room.ParticipantUserIDs,
		})
		if err != nil {
			return fmt.Errorf("sql insert chat room: %w", err)
		}

		chatRoom, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.ChatRoom])
		if err != nil {
			return fmt.Errorf("sql collect inserted chat room: %w", err)
		}

		if _, err := p.createSystemMessage(ctx, chatRoom.ID, chatRoomCreatedMessage); err != nil {
			return err
		}

		out, err = p.hydrateChatRoom(ctx, chatRoom)
		return err
	})
}

func (p *Postgres) ChatRoom(ctx context.Context, chatRoomID, userID string) (types.ChatRoom, error) {
	var out types.ChatRoom

	chatRoom, err := p.chatRoomByID(ctx, chatRoomID)
	if err != nil {
		return out, err
	}

	if !slices.Contains(chatRoom.ParticipantUserIDs, userID) {
		return out, errs.NewPermissionDeniedError("not a participant of this chat room")
	}

	return p.hydrateChatRoom(ctx, chatRoom)
}

func (p *Postgres) UserChatRooms(ctx context.Context, userID string) (types.Page[types.ChatRoom], error) {
	var out types.Page[types.ChatRoom]

	const q = `
		SELECT *
		FROM chat_rooms
		WHERE @user_id = ANY (participant_user_ids)
		ORDER BY created_at DESC
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select user chat rooms: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.ChatRoom])
	if err != nil {
		return out, fmt.Errorf("sql collect user chat rooms: %w", err)
	}

	for i, chatRoom := range out.Items {
		out.Items[i], err = p.hydrateChatRoom(ctx, chatRoom)
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

func (p *Postgres) CreateChatMessage(ctx context.Context, in types.SendChatMessage) (types.ChatMessage, error) {
	var out types.ChatMessage
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		chatRoom, err := p.chatRoomByID(ctx, in.ChatRoomID)
		if err != nil {
			return err
		}

		if !slices.Contains(chatRoom.ParticipantUserIDs, in.LoggedInUserID()) {
			return errs.NewPermissionDeniedError("not a participant of this chat room")
		}

		out, err = p.insertChatMessage(ctx, chatRoom.ID, in.LoggedInUserID(), in.Content, in.MessageType)
		if err != nil {
			return err
		}

		out.SenderDisplayName = in.LoggedInUserID()
		if profile, err := p.UserProfile(ctx, in.LoggedInUserID()); err == nil {
			out.SenderDisplayName = profile.DisplayName
			out.SenderProfileImage = profile.ProfileImage
		}

		return nil
	})
}

// CreateSystemChatMessage appends a system-generated message without a
// participant check.
func (p *Postgres) CreateSystemChatMessage(ctx context.Context, chatRoomID, content string) (types.ChatMessage, error) {
	if _, err := p.chatRoomByID(ctx, chatRoomID); err != nil {
		return types.ChatMessage{}, err
	}

	return p.createSystemMessage(ctx, chatRoomID, content)
}

func (p *Postgres) ChatMessages(ctx context.Context, in types.ListChatMessages) (types.Page[types.ChatMessage], error) {
	var out types.Page[types.ChatMessage]

	if err := p.requireChatParticipant(ctx, in.ChatRoomID, in.LoggedInUserID()); err != nil {
		return out, err
	}

	const q = `
		SELECT messages.*
		FROM (
			SELECT chat_messages.*,
				COALESCE(sender.display_name, 'System') AS sender_display_name,
				sender.profile_image AS sender_profile_image
			FROM chat_messages
			LEFT JOIN user_profiles AS sender ON sender.user_id = chat_messages.sender_user_id
			WHERE chat_messages.chat_room_id = @chat_room_id
			ORDER BY chat_messages.sent_at DESC
			LIMIT @limit
		) AS messages
		ORDER BY messages.sent_at ASC
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"chat_room_id": in.ChatRoomID,
		"limit":        in.Limit,
	})
	if err != nil {
		return out, fmt.Errorf("sql select chat messages: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.ChatMessage])
	if err != nil {
		return out, fmt.Errorf("sql collect chat messages: %w", err)
	}

	return out, nil
}

func (p *Postgres) ChatMessagesSince(ctx context.Context, in types.ListChatMessagesSince) (types.Page[types.ChatMessage], error) {
	var out types.Page[types.ChatMessage]

	if err := p.requireChatParticipant(ctx, in.ChatRoomID, in.LoggedInUserID()); err != nil {
		return out, err
	}

	const q = `
		SELECT chat_messages.*,
			COALESCE(sender.display_name, 'System') AS sender_display_name,
			sender.profile_image AS sender_profile_image
		FROM chat_messages
		LEFT JOIN user_profiles AS sender ON sender.user_id = chat_messages.sender_user_id
		WHERE chat_messages.chat_room_id = @chat_room_id
			AND chat_messages.sent_at > @since
		ORDER BY chat_messages.sent_at ASC
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"chat_room_id": in.ChatRoomID,
		"since":        in.Since,
	})
	if err != nil {
		return out, fmt.Errorf("sql select chat messages since: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.ChatMessage])
	if err != nil {
		return out, fmt.Errorf("sql collect chat messages since: %w", err)
	}

	return out, nil
}

// DeleteChatRoom removes a chat room and, via cascade, its messages.
// Admin-only at the transport; the store does not check roles.
func (p *Postgres) DeleteChatRoom(ctx context.Context, chatRoomID string) error {
	const q = `
		DELETE FROM chat_rooms
		WHERE id = @chat_room_id
	`

	tag, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"chat_room_id": chatRoomID,
	})
	if err != nil {
		return fmt.Errorf("sql delete chat room: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errs.NewNotFoundError("chat room not found")
	}

	return nil
}

func (p *Postgres) insertChatMessage(ctx context.Context, chatRoomID, senderUserID, content string, messageType types.ChatMessageType) (types.ChatMessage, error) {
	var out types.ChatMessage

	const q = `
		INSERT INTO chat_messages (id, chat_room_id, sender_user_id, content, message_type)
		VALUES (@message_id, @chat_room_id, @sender_user_id, @content, @message_type)
		RETURNING *
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"message_id":     id.Generate(),
		"chat_room_id":   chatRoomID,
		"sender_user_id": senderUserID,
		"content":        content,
		"message_type":   messageType.String(),
	})
	if err != nil {
		return out, fmt.Errorf("sql insert chat message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.ChatMessage])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted chat message: %w", err)
	}

	return out, nil
}

func (p *Postgres) createSystemMessage(ctx context.Context, chatRoomID, content string) (types.ChatMessage, error) {
	msg, err := p.insertChatMessage(ctx, chatRoomID, types.SystemSenderID, content, types.ChatMessageTypeSystem)
	if err != nil {
		return msg, err
	}

	msg.SenderDisplayName = "System"
	return msg, nil
}

func (p *Postgres) requireChatParticipant(ctx context.Context, chatRoomID, userID string) error {
	chatRoom, err := p.chatRoomByID(ctx, chatRoomID)
	if err != nil {
		return err
	}

	if !slices.Contains(chatRoom.ParticipantUserIDs, userID) {
		return errs.NewPermissionDeniedError("not a participant of this chat room")
	}

	return nil
}

func (p *Postgres) chatRoomByID(ctx context.Context, chatRoomID string) (types.ChatRoom, error) {
	return p.chatRoom(ctx, "id", chatRoomID)
}

func (p *Postgres) chatRoomByRequestID(ctx context.Context, requestID string) (types.ChatRoom, error) {
	return p.chatRoom(ctx, "matching_request_id", requestID)
}

func (p *Postgres) chatRoom(ctx context.Context, column, value string) (types.ChatRoom, error) {
	var out types.ChatRoom

	q := fmt.Sprintf(`
		SELECT *
		FROM chat_rooms
		WHERE %s = @value
	`, column)

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"value": value,
	})
	if err != nil {
		return out, fmt.Errorf("sql select chat room: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.ChatRoom])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("chat room not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect chat room: %w", err)
	}

	return out, nil
}

func (p *Postgres) hydrateChatRoom(ctx context.Context, chatRoom types.ChatRoom) (types.ChatRoom, error) {
	request, err := p.MatchingRequest(ctx, chatRoom.MatchingRequestID)
	if err != nil && !errs.IsNotFound(err) {
		return chatRoom, err
	}

	chatRoom.Participants, err = p.participants(ctx, request.HostUserID, chatRoom.ParticipantUserIDs)
	if err != nil {
		return chatRoom, err
	}

	lastMessage, err := p.lastChatMessage(ctx, chatRoom.ID)
	if err != nil && !errs.IsNotFound(err) {
		return chatRoom, err
	}
	if err == nil {
		chatRoom.LastMessage = &lastMessage
	}

	return chatRoom, nil
}

func (p *Postgres) lastChatMessage(ctx context.Context, chatRoomID string) (types.ChatMessage, error) {
	var out types.ChatMessage

	const q = `
		SELECT chat_messages.*,
			COALESCE(sender.display_name, 'System') AS sender_display_name,
			sender.profile_image AS sender_profile_image
		FROM chat_messages
		LEFT JOIN user_profiles AS sender ON sender.user_id = chat_messages.sender_user_id
		WHERE chat_messages.chat_room_id = @chat_room_id
		ORDER BY chat_messages.sent_at DESC
		LIMIT 1
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"chat_room_id": chatRoomID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select last chat message: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.ChatMessage])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("no messages")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect last chat message: %w", err)
	}

	return out, nil
}
