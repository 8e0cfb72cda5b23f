package service

import (
	"context"

	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func (svc *Service) CreateMatchingRequest(ctx context.Context, in types.CreateMatchingRequest) (types.Created, error) {
	var out types.Created

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	if err := svc.requireProfile(ctx, loggedInUser.ID); err != nil {
		return out, err
	}

	return svc.Postgres.CreateMatchingRequest(ctx, in)
}

func (svc *Service) MatchingRequest(ctx context.Context, in types.RetrieveMatchingRequest) (types.MatchingRequest, error) {
	var out types.MatchingRequest

	if err := in.Validate(); err != nil {
		return out, err
	}

	return svc.Postgres.MatchingRequest(ctx, in.RequestID)
}

func (svc *Service) MatchingRequests(ctx context.Context, in types.ListMatchingRequests) (types.Page[types.MatchingRequest], error) {
	return svc.Postgres.MatchingRequests(ctx, in)
}

func (svc *Service) UserMatchingRequests(ctx context.Context) (types.Page[types.MatchingRequest], error) {
	var out types.Page[types.MatchingRequest]

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.MatchingRequests(ctx, types.ListMatchingRequests{
		HostUserID: loggedInUser.ID,
	})
}

func (svc *Service) UpdateMatchingRequest(ctx context.Context, in types.UpdateMatchingRequest) (types.MatchingRequest, error) {
	var out types.MatchingRequest

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.UpdateMatchingRequest(ctx, in)
}

// CancelMatchingRequest closes the request. Any holding room still waiting on
// it is disbanded in the background so subscribers learn the room is gone.
func (svc *Service) CancelMatchingRequest(ctx context.Context, requestID string) (types.MatchingRequest, error) {
	var out types.MatchingRequest

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	out, err := svc.Postgres.CancelMatchingRequest(ctx, requestID, loggedInUser.ID)
	if err != nil {
		return out, err
	}

	svc.background(func(ctx context.Context) error {
		room, err := svc.Postgres.DisbandMatchingRoom(ctx, requestID, loggedInUser.ID)
		if errs.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		svc.publishRoomEvent(ctx, room, types.RoomEvent{
			Kind: types.RoomEventKindDisbanded,
			Disbanded: &types.RoomDisbanded{
				DisbandedBy: loggedInUser.ID,
			},
		})

		return nil
	})

	return out, nil
}

func (svc *Service) requireProfile(ctx context.Context, userID string) error {
	exists, err := svc.Postgres.UserProfileExists(ctx, userID)
	if err != nil {
		return err
	}

	if !exists {
		return errs.NewConflictError("complete your profile first")
	}

	return nil
}
