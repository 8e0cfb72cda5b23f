package service

import (
	"context"

	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

// EnsureMatchingRoom idempotently creates the holding room for a request,
// with the host as the sole initial participant.
func (svc *Service) EnsureMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	return svc.Postgres.EnsureMatchingRoom(ctx, requestID)
}

// JoinMatchingRoom puts the caller into the holding room and broadcasts the
// membership change.
func (svc *Service) JoinMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	out, err := svc.Postgres.JoinMatchingRoom(ctx, requestID, loggedInUser.ID)
	if err != nil {
		return out, err
	}

	svc.publishRoomEvent(ctx, out, types.RoomEvent{
		Kind: types.RoomEventKindJoined,
		Joined: &types.RoomJoined{
			UserID:      loggedInUser.ID,
			DisplayName: svc.displayName(ctx, loggedInUser.ID),
		},
	})

	return out, nil
}

// LeaveMatchingRoom removes the caller from the holding room. The host
// cannot leave; they disband instead.
func (svc *Service) LeaveMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	out, err := svc.Postgres.LeaveMatchingRoom(ctx, requestID, loggedInUser.ID)
	if err != nil {
		return out, err
	}

	svc.publishRoomEvent(ctx, out, types.RoomEvent{
		Kind: types.RoomEventKindLeft,
		Left: &types.RoomLeft{
			UserID:      loggedInUser.ID,
			DisplayName: svc.displayName(ctx, loggedInUser.ID),
		},
	})

	return out, nil
}

// ConfirmMatchingRoom locks in the participant set. The caller is expected
// to follow up with CreateChatRoomFromRequest; the coordinator stays
// decoupled from chat.
func (svc *Service) ConfirmMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	out, err := svc.Postgres.ConfirmMatchingRoom(ctx, requestID, loggedInUser.ID)
	if err != nil {
		return out, err
	}

	svc.publishRoomEvent(ctx, out, types.RoomEvent{
		Kind: types.RoomEventKindConfirmed,
		Confirmed: &types.RoomConfirmed{
			ConfirmedBy: loggedInUser.ID,
		},
	})

	return out, nil
}

// DisbandMatchingRoom cancels the room and closes the parent request.
func (svc *Service) DisbandMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	out, err := svc.Postgres.DisbandMatchingRoom(ctx, requestID, loggedInUser.ID)
	if err != nil {
		return out, err
	}

	svc.publishRoomEvent(ctx, out, types.RoomEvent{
		Kind: types.RoomEventKindDisbanded,
		Disbanded: &types.RoomDisbanded{
			DisbandedBy: loggedInUser.ID,
		},
	})

	return out, nil
}

func (svc *Service) MatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	return svc.Postgres.MatchingRoom(ctx, requestID)
}

func (svc *Service) UserMatchingRooms(ctx context.Context) (types.Page[types.MatchingRoom], error) {
	var out types.Page[types.MatchingRoom]

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.UserMatchingRooms(ctx, loggedInUser.ID)
}

func (svc *Service) ActiveMatchingRooms(ctx context.Context) (types.Page[types.MatchingRoom], error) {
	return svc.Postgres.ActiveMatchingRooms(ctx)
}
