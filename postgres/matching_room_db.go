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

// EnsureMatchingRoom creates the holding room for a request if it does not
// exist yet, seeded with the host as the sole participant. Idempotent.
func (p *Postgres) EnsureMatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		request, err := p.matchingRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		const q = `
			INSERT INTO matching_rooms (id, matching_request_id, participant_user_ids)
			VALUES (@room_id, @request_id, @participant_user_ids)
			ON CONFLICT (matching_request_id) DO NOTHING
		`

		_, err = p.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"room_id":              id.Generate(),
			"request_id":           requestID,
			"participant_user_ids": []string{request.HostUserID},
		})
		if err != nil {
			return fmt.Errorf("sql insert matching room: %w", err)
		}

		room, err := p.matchingRoomByRequestID(ctx, requestID, false)
		if err != nil {
			return err
		}

		out, err = p.hydrateRoom(ctx, room, request.HostUserID)
		return err
	})
}

// JoinMatchingRoom adds the user to the room's participant set. A no-op if
// the user is already in. The row lock serializes concurrent joins so the
// capacity check holds under contention.
func (p *Postgres) JoinMatchingRoom(ctx context.Context, requestID, userID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		room, err := p.matchingRoomByRequestID(ctx, requestID, true)
		if err != nil {
			return err
		}

		request, err := p.MatchingRequest(ctx, requestID)
		if err != nil {
			return err
		}

		if slices.Contains(room.ParticipantUserIDs, userID) {
			out, err = p.hydrateRoom(ctx, room, request.HostUserID)
			return err
		}

		if room.Status != types.MatchingRoomStatusWaiting {
			return errs.NewConflictError("room is not accepting participants")
		}
		if len(room.ParticipantUserIDs) >= request.MaxParticipants {
			return errs.NewConflictError("room is full")
		}
		if userID == request.HostUserID {
			return errs.NewConflictError("host is already a participant")
		}

		const q = `
			UPDATE matching_rooms
			SET participant_user_ids = array_append(participant_user_ids, @user_id)
			  , updated_at = now()
			WHERE id = @room_id
		`

		_, err = p.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"room_id": room.ID,
			"user_id": userID,
		})
		if err != nil {
			return fmt.Errorf("sql append room participant: %w", err)
		}

		room, err = p.matchingRoomByRequestID(ctx, requestID, false)
		if err != nil {
			return err
		}

		out, err = p.hydrateRoom(ctx, room, request.HostUserID)
		return err
	})
}

// LeaveMatchingRoom removes the user and deletes their accepted application,
// keeping the ledger consistent with room membership.
func (p *Postgres) LeaveMatchingRoom(ctx context.Context, requestID, userID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		room, err := p.matchingRoomByRequestID(ctx, requestID, true)
		if err != nil {
			return err
		}

		request, err := p.MatchingRequest(ctx, requestID)
		if err != nil {
			return err
		}

		if userID == request.HostUserID {
			return errs.NewPermissionDeniedError("host cannot leave the room, disband it instead")
		}
		if !slices.Contains(room.ParticipantUserIDs, userID) {
			return errs.NewNotFoundError("not a participant of this room")
		}

		const q = `
			UPDATE matching_rooms
			SET participant_user_ids = array_remove(participant_user_ids, @user_id)
			  , updated_at = now()
			WHERE id = @room_id
		`

		_, err = p.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"room_id": room.ID,
			"user_id": userID,
		})
		if err != nil {
			return fmt.Errorf("sql remove room participant: %w", err)
		}

		const deleteAccepted = `
			DELETE FROM matching_applications
			WHERE matching_request_id = @request_id
				AND applicant_user_id = @user_id
				AND status = 'ACCEPTED'
		`

		_, err = p.db.Exec(ctx, deleteAccepted, pgx.StrictNamedArgs{
			"request_id": requestID,
			"user_id":    userID,
		})
		if err != nil {
			return fmt.Errorf("sql delete accepted application on leave: %w", err)
		}

		room, err = p.matchingRoomByRequestID(ctx, requestID, false)
		if err != nil {
			return err
		}

		out, err = p.hydrateRoom(ctx, room, request.HostUserID)
		return err
	})
}

// ConfirmMatchingRoom locks in the participant set and moves the parent
// request to CONFIRMED. Monotonic: a confirmed room never goes back to
// waiting.
func (p *Postgres) ConfirmMatchingRoom(ctx context.Context, requestID, hostUserID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		room, err := p.matchingRoomByRequestID(ctx, requestID, true)
		if err != nil {
			return err
		}

		request, err := p.MatchingRequest(ctx, requestID)
		if err != nil {
			return err
		}

		if request.HostUserID != hostUserID {
			return errs.NewPermissionDeniedError("only the host can confirm the room")
		}
		if room.Status != types.MatchingRoomStatusWaiting {
			return errs.NewConflictError("room is not in a waiting state")
		}
		if len(room.ParticipantUserIDs) < types.MinParticipants {
			return errs.NewConflictError("not enough participants, at least 2 required")
		}

		if err := p.updateMatchingRoomStatus(ctx, room.ID, types.MatchingRoomStatusConfirmed); err != nil {
			return err
		}

		if err := p.updateMatchingRequestStatus(ctx, requestID, types.MatchingRequestStatusConfirmed); err != nil {
			return err
		}

		room, err = p.matchingRoomByRequestID(ctx, requestID, false)
		if err != nil {
			return err
		}

		out, err = p.hydrateRoom(ctx, room, request.HostUserID)
		return err
	})
}

// DisbandMatchingRoom cancels the room and closes the parent request.
func (p *Postgres) DisbandMatchingRoom(ctx context.Context, requestID, hostUserID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		room, err := p.matchingRoomByRequestID(ctx, requestID, true)
		if err != nil {
			return err
		}

		request, err := p.MatchingRequest(ctx, requestID)
		if err != nil {
			return err
		}

		if request.HostUserID != hostUserID {
			return errs.NewPermissionDeniedError("only the host can disband the room")
		}

		if err := p.updateMatchingRoomStatus(ctx, room.ID, types.MatchingRoomStatusDisbanded); err != nil {
			return err
		}

		if err := p.updateMatchingRequestStatus(ctx, requestID, types.MatchingRequestStatusClosed); err != nil {
			return err
		}

		room, err = p.matchingRoomByRequestID(ctx, requestID, false)
		if err != nil {
			return err
		}

		out, err = p.hydrateRoom(ctx, room, request.HostUserID)
		return err
	})
}

func (p *Postgres) MatchingRoom(ctx context.Context, requestID string) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	room, err := p.matchingRoomByRequestID(ctx, requestID, false)
	if err != nil {
		return out, err
	}

	request, err := p.MatchingRequest(ctx, requestID)
	if err != nil {
		// The room of a soft deleted request stays visible, unhydrated.
		if errs.IsNotFound(err) {
			return room, nil
		}
		return out, err
	}

	return p.hydrateRoom(ctx, room, request.HostUserID)
}

func (p *Postgres) UserMatchingRooms(ctx context.Context, userID string) (types.Page[types.MatchingRoom], error) {
	return p.matchingRooms(ctx, `
		WHERE @arg = ANY (participant_user_ids)
		ORDER BY created_at DESC
	`, pgx.NamedArgs{"arg": userID})
}

func (p *Postgres) ActiveMatchingRooms(ctx context.Context) (types.Page[types.MatchingRoom], error) {
	return p.matchingRooms(ctx, `
		WHERE status = 'WAITING'
		ORDER BY created_at DESC
	`, pgx.NamedArgs{})
}

func (p *Postgres) matchingRooms(ctx context.Context, clause string, args pgx.NamedArgs) (types.Page[types.MatchingRoom], error) {
	var out types.Page[types.MatchingRoom]

	query := `
		SELECT *
		FROM matching_rooms
	` + clause

	rows, err := p.db.Query(ctx, query, args)
	if err != nil {
		return out, fmt.Errorf("sql select matching rooms: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.MatchingRoom])
	if err != nil {
		return out, fmt.Errorf("sql collect matching rooms: %w", err)
	}

	for i, room := range out.Items {
		request, err := p.MatchingRequest(ctx, room.MatchingRequestID)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return out, err
		}

		out.Items[i], err = p.hydrateRoom(ctx, room, request.HostUserID)
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

func (p *Postgres) matchingRoomByRequestID(ctx context.Context, requestID string, forUpdate bool) (types.MatchingRoom, error) {
	var out types.MatchingRoom

	q := `
		SELECT *
		FROM matching_rooms
		WHERE matching_request_id = @request_id
	`
	if forUpdate {
		q += " FOR UPDATE"
	}

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"request_id": requestID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select matching room: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingRoom])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("room not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect matching room: %w", err)
	}

	return out, nil
}

func (p *Postgres) updateMatchingRoomStatus(ctx context.Context, roomID string, status types.MatchingRoomStatus) error {
	const q = `
		UPDATE matching_rooms
		SET status = @status
		  , updated_at = now()
		WHERE id = @room_id
	`

	_, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
		"room_id": roomID,
		"status":  status.String(),
	})
	if err != nil {
		return fmt.Errorf("sql update matching room status: %w", err)
	}

	return nil
}

func (p *Postgres) hydrateRoom(ctx context.Context, room types.MatchingRoom, hostUserID string) (types.MatchingRoom, error) {
	participants, err := p.participants(ctx, hostUserID, room.ParticipantUserIDs)
	if err != nil {
		return room, err
	}

	room.Participants = participants
	return room, nil
}
