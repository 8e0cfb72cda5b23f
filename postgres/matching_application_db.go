package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/id"
	"github.com/ridematch/ridematch/types"
)

func (p *Postgres) ApplyToMatching(ctx context.Context, in types.ApplyToMatching) (types.MatchingApplication, error) {
	var out types.MatchingApplication
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		// The request row lock serializes concurrent applies so the
		// capacity check cannot be raced past.
		request, err := p.matchingRequestForUpdate(ctx, in.RequestID)
		if err != nil {
			return err
		}

		if err := p.validateApplication(ctx, request, in.LoggedInUserID()); err != nil {
			return err
		}

		const q = `
			INSERT INTO matching_applications (id, matching_request_id, applicant_user_id, message)
			VALUES (@application_id, @request_id, @applicant_user_id, @message)
			RETURNING *
		`

		rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
			"application_id":    id.Generate(),
			"request_id":        in.RequestID,
			"applicant_user_id": in.LoggedInUserID(),
			"message":           in.Message,
		})
		if err != nil {
			return fmt.Errorf("sql insert matching application: %w", err)
		}

		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingApplication])
		if err != nil {
			return fmt.Errorf("sql collect inserted matching application: %w", err)
		}

		if request.Status == types.MatchingRequestStatusOpen {
			if err := p.updateMatchingRequestStatus(ctx, in.RequestID, types.MatchingRequestStatusWaiting); err != nil {
				return err
			}
		}

		return nil
	})
}

// CanApply runs the apply validation without mutating anything. A business
// rule failure yields false; infrastructure errors still surface.
func (p *Postgres) CanApply(ctx context.Context, requestID, applicantUserID string) (bool, error) {
	request, err := p.MatchingRequest(ctx, requestID)
	if err == nil {
		err = p.validateApplication(ctx, request, applicantUserID)
	}

	var businessErr *errs.Error
	if errors.As(err, &businessErr) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *Postgres) validateApplication(ctx context.Context, request types.MatchingRequest, applicantUserID string) error {
	if request.HostUserID == applicantUserID {
		return errs.NewConflictError("cannot apply to your own request")
	}

	switch request.Status {
	case types.MatchingRequestStatusOpen, types.MatchingRequestStatusWaiting:
	default:
		return errs.NewConflictError("request is not accepting applications")
	}

	if request.PreferredAt.Before(time.Now()) {
		return errs.NewConflictError("request deadline has passed")
	}

	exists, err := p.applicationExists(ctx, request.ID, applicantUserID)
	if err != nil {
		return err
	}
	if exists {
		return errs.NewConflictError("already applied to this request")
	}

	// One slot is reserved for the host.
	count, err := p.countApplications(ctx, request.ID,
		types.MatchingApplicationStatusPending,
		types.MatchingApplicationStatusAccepted,
	)
	if err != nil {
		return err
	}
	if count >= request.MaxParticipants-1 {
		return errs.NewConflictError("request is full")
	}

	return nil
}

func (p *Postgres) WithdrawApplication(ctx context.Context, requestID, applicantUserID string) error {
	return p.db.RunTx(ctx, func(ctx context.Context) error {
		const q = `
			DELETE FROM matching_applications
			WHERE matching_request_id = @request_id
				AND applicant_user_id = @applicant_user_id
				AND status = 'PENDING'
		`

		tag, err := p.db.Exec(ctx, q, pgx.StrictNamedArgs{
			"request_id":        requestID,
			"applicant_user_id": applicantUserID,
		})
		if err != nil {
			return fmt.Errorf("sql delete matching application: %w", err)
		}

		if tag.RowsAffected() == 0 {
			return errs.NewNotFoundError("no pending application to withdraw")
		}

		remaining, err := p.countApplications(ctx, requestID, types.MatchingApplicationStatusPending)
		if err != nil {
			return err
		}

		if remaining == 0 {
			return p.updateMatchingRequestStatus(ctx, requestID, types.MatchingRequestStatusOpen)
		}

		return nil
	})
}

func (p *Postgres) UpdateApplicationStatus(ctx context.Context, in types.UpdateApplicationStatus) (types.MatchingApplication, error) {
	var out types.MatchingApplication
	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		application, err := p.applicationByID(ctx, in.ApplicationID)
		if err != nil {
			return err
		}

		request, err := p.matchingRequestForUpdate(ctx, application.MatchingRequestID)
		if err != nil {
			return err
		}

		if request.HostUserID != in.LoggedInUserID() {
			return errs.NewPermissionDeniedError("only the host can process applications")
		}

		if application.Status != types.MatchingApplicationStatusPending {
			return errs.NewConflictError("application has already been processed")
		}

		const q = `
			UPDATE matching_applications
			SET status = @status
			  , updated_at = now()
			WHERE id = @application_id
			RETURNING *
		`

		rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
			"application_id": in.ApplicationID,
			"status":         in.Status.String(),
		})
		if err != nil {
			return fmt.Errorf("sql update matching application status: %w", err)
		}

		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingApplication])
		if err != nil {
			return fmt.Errorf("sql collect updated matching application: %w", err)
		}

		return nil
	})
}

func (p *Postgres) ApplicationsForRequest(ctx context.Context, requestID string) (types.Page[types.MatchingApplication], error) {
	return p.applications(ctx, `
		WHERE matching_applications.matching_request_id = @id
		ORDER BY matching_applications.applied_at ASC
	`, requestID)
}

func (p *Postgres) UserApplications(ctx context.Context, userID string) (types.Page[types.MatchingApplication], error) {
	return p.applications(ctx, `
		WHERE matching_applications.applicant_user_id = @id
		ORDER BY matching_applications.applied_at DESC
	`, userID)
}

func (p *Postgres) AcceptedApplicationsForRequest(ctx context.Context, requestID string) (types.Page[types.MatchingApplication], error) {
	return p.applications(ctx, `
		WHERE matching_applications.matching_request_id = @id
			AND matching_applications.status = 'ACCEPTED'
		ORDER BY matching_applications.applied_at ASC
	`, requestID)
}

func (p *Postgres) applications(ctx context.Context, clause, arg string) (types.Page[types.MatchingApplication], error) {
	var out types.Page[types.MatchingApplication]

	query := `
		SELECT matching_applications.*,
			COALESCE(applicant.display_name, matching_applications.applicant_user_id) AS applicant_display_name
		FROM matching_applications
		LEFT JOIN user_profiles AS applicant ON applicant.user_id = matching_applications.applicant_user_id
	` + clause

	rows, err := p.db.Query(ctx, query, pgx.NamedArgs{"id": arg})
	if err != nil {
		return out, fmt.Errorf("sql select matching applications: %w", err)
	}

	out.Items, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.MatchingApplication])
	if err != nil {
		return out, fmt.Errorf("sql collect matching applications: %w", err)
	}

	return out, nil
}

func (p *Postgres) applicationByID(ctx context.Context, applicationID string) (types.MatchingApplication, error) {
	var out types.MatchingApplication

	const q = `
		SELECT *
		FROM matching_applications
		WHERE id = @application_id
	`

	rows, err := p.db.Query(ctx, q, pgx.StrictNamedArgs{
		"application_id": applicationID,
	})
	if err != nil {
		return out, fmt.Errorf("sql select matching application: %w", err)
	}

	out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.MatchingApplication])
	if db.IsNotFoundError(err) {
		return out, errs.NewNotFoundError("application not found")
	}

	if err != nil {
		return out, fmt.Errorf("sql collect matching application: %w", err)
	}

	return out, nil
}

func (p *Postgres) applicationExists(ctx context.Context, requestID, applicantUserID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM matching_applications
			WHERE matching_request_id = @request_id
				AND applicant_user_id = @applicant_user_id
		)
	`

	var exists bool
	err := p.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"request_id":        requestID,
		"applicant_user_id": applicantUserID,
	}).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sql select matching application existence: %w", err)
	}

	return exists, nil
}

func (p *Postgres) countApplications(ctx context.Context, requestID string, statuses ...types.MatchingApplicationStatus) (int, error) {
	ss := make([]string, len(statuses))
	for i, status := range statuses {
		ss[i] = status.String()
	}

	const q = `
		SELECT count(*)
		FROM matching_applications
		WHERE matching_request_id = @request_id
			AND status = ANY (@statuses)
	`

	var count int
	err := p.db.QueryRow(ctx, q, pgx.StrictNamedArgs{
		"request_id": requestID,
		"statuses":   ss,
	}).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sql count matching applications: %w", err)
	}

	return count, nil
}
