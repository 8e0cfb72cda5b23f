package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/types"
)

var activeRequestStatuses = []string{
	types.MatchingRequestStatusOpen.String(),
	types.MatchingRequestStatusWaiting.String(),
}

func (p *Postgres) CreateMatchingRequest(ctx context.Context, in types.CreateMatchingRequest) (types.Created, error) {
	var out types.Created

	const q = `
		INSERT INTO matching_requests (id, host_user_id, attraction, preferred_at, max_participants, description)
		VALUES (@request_id, @host_user_id, @attraction, @preferred_at, @max_participants, @description)
		RETURNING id, created_at
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"request_id":       id.Generate(),
		"host_user_id":     in.LoggedInUserID(),
		"attraction":       in.Attraction,
		"preferred_at":     in.PreferredAt,
		"max_participants": in.MaxParticipants,
		"description":      in.Description,
	})
	if err != nil {
		return out, fmt.Errorf("sql insert matching request: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Created])
	if err != nil {
		return out, fmt.Errorf("sql collect inserted matching request: %w", err)
	}

	return out, nil
}

func (p *Postgres) MatchingRequest(ctx context.Context, requestID string) (types.MatchingRequest, error) {
	var out types.MatchingRequest

	const q = `
		SELECT matching_requests.*,
			COALESCE(host.display_name, matching_requests.host_user_id) AS host_display_name,
			(
				SELECT count(*) FROM matching_applications
				WHERE matching_applications.matching_request_id = matching_requests.id
					AND matching_applications.status = 'PENDING'
			) AS pending_applications
		FROM matching_requests
		LEFT JOIN user_profiles AS host ON host.user_id = matching_requests.host_user_id
		WHERE matching_requests.id = @request_id
			AND matching_requests.deleted_at IS NULL
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"request_id": requestID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select matching request: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingRequest])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("matching request not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect matching request: %w", err)
	}

	return out, nil
}

func (p *Postgres) MatchingRequests(ctx context.Context, in types.ListMatchingRequests) (types.Page[types.MatchingRequest], error) {
	var out types.Page[types.MatchingRequest]

	query := `
		SELECT matching_requests.*,
			COALESCE(host.display_name, matching_requests.host_user_id) AS host_display_name,
			(
				SELECT count(*) FROM matching_applications
				WHERE matching_applications.matching_request_id = matching_requests.id
					AND matching_applications.status = 'PENDING'
			) AS pending_applications
		FROM matching_requests
		LEFT JOIN user_profiles AS host ON host.user_id = matching_requests.host_user_id
	`
	args := pgx.NamedArgs{}
	filters := []string{"matching_requests.deleted_at IS NULL"}

	if in.HostUserID != "" {
		filters = append(filters, "matching_requests.host_user_id = @host_user_id")
		args["host_user_id"] = in.HostUserID
	} else {
		filters = append(filters, "matching_requests.status = ANY (@statuses)")
		args["statuses"] = activeRequestStatuses
	}

	if in.Attraction != "" {
		filters = append(filters, "matching_requests.attraction = @attraction")
		args["attraction"] = in.Attraction
	}
	if in.From != nil {
		filters = append(filters, "matching_requests.preferred_at >= @from")
		args["from"] = *in.From
	}
	if in.To != nil {
		filters = append(filters, "matching_requests.preferred_at <= @to")
		args["to"] = *in.To
	}

	query += where(filters) + " ORDER BY matching_requests.created_at DESC"

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		return out, fmt.Errorf("sql select matching requests: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.MatchingRequest])
	if err != nil {
		return out, fmt.Errorf("sql collect matching requests: %w", err)
	}

	return out, nil
}

func (p *Postgres) UpdateMatchingRequest(ctx context.Context, in types.UpdateMatchingRequest) (types.MatchingRequest, error) {
	var out types.MatchingRequest
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		existing, err := p.matchingRequestForUpdate(ctx, in.RequestID)
		if err != nil {
			return err
		}

		if existing.HostUserID != in.LoggedInUserID() {
			return errs.NewPermissionDeniedError("only the host can edit the request")
		}

		switch existing.Status {
		case types.MatchingRequestStatusOpen, types.MatchingRequestStatusWaiting:
		default:
			return errs.NewConflictError("confirmed or finished requests cannot be edited")
		}

		const q = `
			UPDATE matching_requests
			SET description = COALESCE(@description, description)
			  , preferred_at = COALESCE(@preferred_at, preferred_at)
			  , max_participants = COALESCE(@max_participants, max_participants)
			  , updated_at = now()
			WHERE id = @request_id
		`

		_, err = p.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"request_id":       in.RequestID,
			"description":      in.Description,
			"preferred_at":     in.PreferredAt,
			"max_participants": in.MaxParticipants,
		})
		if err != nil {
			return fmt.Errorf("sql update matching request: %w", err)
		}

		out, err = p.MatchingRequest(ctx, in.RequestID)
		return err
	})
}

func (p *Postgres) CancelMatchingRequest(ctx context.Context, requestID, hostUserID string) (types.MatchingRequest, error) {
	var out types.MatchingRequest
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		existing, err := p.matchingRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if existing.HostUserID != hostUserID {
			return errs.NewPermissionDeniedError("only the host can cancel the request")
		}

		if existing.Status == types.MatchingRequestStatusConfirmed {
			return errs.NewConflictError("confirmed requests cannot be cancelled")
		}

		if err := p.updateMatchingRequestStatus(ctx, requestID, types.MatchingRequestStatusClosed); err != nil {
			return err
		}

		out, err = p.MatchingRequest(ctx, requestID)
		return err
	})
}

// ExpireMatchingRequests flips every still-active request whose preferred
// time has passed to EXPIRED, in one statement.
func (p *Postgres) ExpireMatchingRequests(ctx context.Context, now time.Time) (int, error) {
	const q = `
		UPDATE matching_requests
		SET status = 'EXPIRED'
		  , updated_at = @now
		WHERE deleted_at IS NULL
			AND status = ANY (@statuses)
			AND preferred_at < @now
	`

	tag, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"now":      now,
		"statuses": activeRequestStatuses,
	})
	if err != nil {
		return 0, fmt.Errorf("sql expire matching requests: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// SoftDeleteExpiredRequests marks requests whose preferred time passed the
// given threshold as deleted, and disbands any holding room still waiting on
// them. One transaction, idempotent: already-deleted rows never match again.
func (p *Postgres) SoftDeleteExpiredRequests(ctx context.Context, now, threshold time.Time) (int, error) {
	var count int
	return count, p.db.RunTx(ctx, func(ctx context.Context) error {
		const q = `
			UPDATE matching_requests
			SET deleted_at = @now
			  , updated_at = @now
			WHERE deleted_at IS NULL
				AND status = ANY (@statuses)
				AND preferred_at < @threshold
			RETURNING id
		`

		rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
			"now":       now,
			"threshold": threshold,
			"statuses": []string{
				types.MatchingRequestStatusExpired.String(),
				types.MatchingRequestStatusOpen.String(),
				types.MatchingRequestStatusWaiting.String(),
				types.MatchingRequestStatusClosed.String(),
			},
		})
		if err != nil {
			return fmt.Errorf("sql soft delete matching requests: %w", err)
		}

		deletedIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("sql collect soft deleted request ids: %w", err)
		}

		count = len(deletedIDs)
		if count == 0 {
			return nil
		}

		const disbandQuery = `
			UPDATE matching_rooms
			SET status = 'DISBANDED'
			  , updated_at = @now
			WHERE matching_request_id = ANY (@request_ids)
				AND status = 'WAITING'
		`

		_, err = p.db.Exec(ctx, disbandQuery, pgx.StrictNamedArgs{
			"now":         now,
			"request_ids": deletedIDs,
		})
		if err != nil {
			return fmt.Errorf("sql disband rooms of soft deleted requests: %w", err)
		}

		return nil
	})
}

func (p *Postgres) matchingRequestForUpdate(ctx context.Context, requestID string) (types.MatchingRequest, error) {
	var out types.MatchingRequest

	const q = `
		SELECT *
		FROM matching_requests
		WHERE id = @request_id
			AND deleted_at IS NULL
		FOR UPDATE
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"request_id": requestID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select matching request for update: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingRequest])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("matching request not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect matching request for update: %w", err)
	}

	return out, nil
}

func (p *Postgres) updateMatchingRequestStatus(ctx context.Context, requestID string, status types.MatchingRequestStatus) error {
	const q = `
		UPDATE matching_requests
		SET status = @status
		  , updated_at = now()
		WHERE id = @request_id
	`

	_, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"request_id": requestID,
		"status":     status.String(),
	})
	if err != nil {
		return fmt.Errorf("sql update matching request status: %w", err)
	}

	return nil
}
