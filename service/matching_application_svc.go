package service

import (
	"context"

	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

// ApplyToMatching records a pending application and, best-effort, puts the
// applicant into the request's holding room. A failed auto-join is logged
// and does not fail the application.
func (svc *Service) ApplyToMatching(ctx context.Context, in types.ApplyToMatching) (types.MatchingApplication, error) {
	var out types.MatchingApplication

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

	out, err := svc.Postgres.ApplyToMatching(ctx, in)
	if err != nil {
		return out, err
	}

	if _, err := svc.Postgres.EnsureMatchingRoom(ctx, in.RequestID); err != nil {
		svc.Logger.Warn("ensure room on apply", "request_id", in.RequestID, "user_id", loggedInUser.ID, "err", err)
		return out, nil
	}

	room, err := svc.Postgres.JoinMatchingRoom(ctx, in.RequestID, loggedInUser.ID)
	if err != nil {
		svc.Logger.Warn("join room on apply", "request_id", in.RequestID, "user_id", loggedInUser.ID, "err", err)
		return out, nil
	}

	svc.publishRoomEvent(ctx, room, types.RoomEvent{
		Kind: types.RoomEventKindJoined,
		Joined: &types.RoomJoined{
			UserID:      loggedInUser.ID,
			DisplayName: svc.displayName(ctx, loggedInUser.ID),
		},
	})

	return out, nil
}

// WithdrawApplication deletes a pending application and, best-effort, takes
// the applicant out of the holding room.
func (svc *Service) WithdrawApplication(ctx context.Context, requestID string) error {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return errs.Unauthenticated
	}

	if err := svc.Postgres.WithdrawApplication(ctx, requestID, loggedInUser.ID); err != nil {
		return err
	}

	room, err := svc.Postgres.LeaveMatchingRoom(ctx, requestID, loggedInUser.ID)
	if err != nil {
		svc.Logger.Warn("leave room on withdraw", "request_id", requestID, "user_id", loggedInUser.ID, "err", err)
		return nil
	}

	svc.publishRoomEvent(ctx, room, types.RoomEvent{
		Kind: types.RoomEventKindLeft,
		Left: &types.RoomLeft{
			UserID:      loggedInUser.ID,
			DisplayName: svc.displayName(ctx, loggedInUser.ID),
		},
	})

	return nil
}

// UpdateApplicationStatus lets the host accept or reject a pending
// application. Room membership is not touched here: the applicant joined at
// apply time, and JoinMatchingRoom is exposed for explicit reconciliation.
func (svc *Service) UpdateApplicationStatus(ctx context.Context, in types.UpdateApplicationStatus) (types.MatchingApplication, error) {
	var out types.MatchingApplication

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.UpdateApplicationStatus(ctx, in)
}

// CanApply reports whether the caller could apply right now. Business rule
// failures come back as false, never as an error.
func (svc *Service) CanApply(ctx context.Context, requestID string) (bool, error) {
	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return false, errs.Unauthenticated
	}

	exists, err := svc.Postgres.UserProfileExists(ctx, loggedInUser.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	return svc.Postgres.CanApply(ctx, requestID, loggedInUser.ID)
}

func (svc *Service) ApplicationsForRequest(ctx context.Context, requestID string) (types.Page[types.MatchingApplication], error) {
	return svc.Postgres.ApplicationsForRequest(ctx, requestID)
}

func (svc *Service) UserApplications(ctx context.Context) (types.Page[types.MatchingApplication], error) {
	var out types.Page[types.MatchingApplication]

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	return svc.Postgres.UserApplications(ctx, loggedInUser.ID)
}

func (svc *Service) AcceptedApplicationsForRequest(ctx context.Context, requestID string) (types.Page[types.MatchingApplication], error) {
	return svc.Postgres.AcceptedApplicationsForRequest(ctx, requestID)
}

func (svc *Service) displayName(ctx context.Context, userID string) string {
	profile, err := svc.Postgres.UserProfile(ctx, userID)
	if err != nil {
		return userID
	}
	return profile.DisplayName
}
