package service

import (
	"context"
	"fmt"

	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

// CreateChatRoomFromRequest spawns the group chat for a confirmed room.
// Idempotent; repeated calls return the existing chat room.
func (svc *Service) CreateChatRoomFromRequest(ctx context.Context, requestID string) (types.ChatRoom, error) {
	var out types.ChatRoom

	if _, loggedIn := auth.UserFromContext(ctx); !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.CreateChatRoomFromRequest(ctx, requestID)
}

func (svc *Service) ChatRoom(ctx context.Context, chatRoomID string) (types.ChatRoom, error) {
	var out types.ChatRoom

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.ChatRoom(ctx, chatRoomID, loggedInUser.ID)
}

func (svc *Service) UserChatRooms(ctx context.Context) (types.Page[types.ChatRoom], error) {
	var out types.Page[types.ChatRoom]

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.UserChatRooms(ctx, loggedInUser.ID)
}

func (svc *Service) SendChatMessage(ctx context.Context, in types.SendChatMessage) (types.ChatMessage, error) {
	var out types.ChatMessage

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.CreateChatMessage(ctx, in)
}

func (svc *Service) ChatMessages(ctx context.Context, in types.ListChatMessages) (types.Page[types.ChatMessage], error) {
	var out types.Page[types.ChatMessage]

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.ChatMessages(ctx, in)
}

func (svc *Service) ChatMessagesSince(ctx context.Context, in types.ListChatMessagesSince) (types.Page[types.ChatMessage], error) {
	var out types.Page[types.ChatMessage]

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.ChatMessagesSince(ctx, in)
}

// NotifyUserJoinedChat and NotifyUserLeftChat append system messages for
// membership changes surfaced by the transport.
func (svc *Service) NotifyUserJoinedChat(ctx context.Context, chatRoomID, userID string) (types.ChatMessage, error) {
	content := fmt.Sprintf("%s joined the room", svc.displayName(ctx, userID))
	return svc.Postgres.CreateSystemChatMessage(ctx, chatRoomID, content)
}

func (svc *Service) NotifyUserLeftChat(ctx context.Context, chatRoomID, userID string) (types.ChatMessage, error) {
	content := fmt.Sprintf("%s left the room", svc.displayName(ctx, userID))
	return svc.Postgres.CreateSystemChatMessage(ctx, chatRoomID, content)
}

// DeleteChatRoom is an operator-only escape hatch; the transport is
// responsible for gating it.
func (svc *Service) DeleteChatRoom(ctx context.Context, chatRoomID string) error {
	return svc.Postgres.DeleteChatRoom(ctx, chatRoomID)
}
