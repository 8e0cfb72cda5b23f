package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func (p *Postgres) UpsertUserProfile(ctx context.Context, in types.UpsertUserProfile) (types.UserProfile, error) {
	var out types.UserProfile

	const q = `
		INSERT INTO user_profiles (user_id, display_name, profile_image, bio)
		VALUES (@user_id, @display_name, @profile_image, @bio)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = excluded.display_name
		  , profile_image = excluded.profile_image
		  , bio = excluded.bio
		  , updated_at = now()
		RETURNING *
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id":       in.LoggedInUserID(),
		"display_name":  in.DisplayName,
		"profile_image": in.ProfileImage,
		"bio":           in.Bio,
	})
	if err != nil {
		return out, fmt.Errorf("sql upsert user profile: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.UserProfile])
	if err != nil {
		return out, fmt.Errorf("sql collect upserted user profile: %w", err)
	}

	return out, nil
}

func (p *Postgres) UserProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	var out types.UserProfile

	const q = `
		SELECT *
		FROM user_profiles
		WHERE user_id = @user_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select user profile: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.UserProfile])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("user profile not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect user profile: %w", err)
	}

	return out, nil
}

func (p *Postgres) UserProfileExists(ctx context.Context, userID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM user_profiles WHERE user_id = @user_id
		)
	`

	var exists bool
	err := p.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"user_id": userID,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sql select user profile existence: %w", err)
	}

	return exists, nil
}

// participants hydrates an ordered user ID list into participant views.
// Profiles are looked up in one query; order follows the input list and
// isHost is computed against the given host.
func (p *Postgres) participants(ctx context.Context, hostUserID string, userIDs []string) ([]types.Participant, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	const q = `
		SELECT user_id, display_name, profile_image
		FROM user_profiles
		WHERE user_id = ANY (@user_ids)
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"user_ids": userIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("sql select participant profiles: %w", err)
	}

	profiles, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.UserProfile])
	if err != nil {
		return nil, fmt.Errorf("sql collect participant profiles: %w", err)
	}

	byID := make(map[string]types.UserProfile, len(profiles))
	for _, profile := range profiles {
		byID[profile.UserID] = profile
	}

	out := make([]types.Participant, 0, len(userIDs))
	for _, userID := range userIDs {
		participant := types.Participant{
			UserID:      userID,
			DisplayName: userID,
			IsHost:      userID == hostUserID,
		}
		if profile, ok := byID[userID]; ok {
			participant.DisplayName = profile.DisplayName
			participant.ProfileImage = profile.ProfileImage
		}
		out = append(out, participant)
	}

	return out, nil
}
