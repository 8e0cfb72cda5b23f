package service

import (
	"context"

	"github.com/ridematch/ridematch/auth"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func (svc *Service) UpsertUserProfile(ctx context.Context, in types.UpsertUserProfile) (types.UserProfile, error) {
	var out types.UserProfile

	if err := in.Validate(); err != nil {
		return out, err
	}

	loggedInUser, loggedIn := auth.UserFromContext(ctx)
	if !loggedIn {
		return out, errs.Unauthenticated
	}

	in.SetLoggedInUserID(loggedInUser.ID)

	return svc.Postgres.UpsertUserProfile(ctx, in)
}

func (svc *Service) UserProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	return svc.Postgres.UserProfile(ctx, userID)
}
