package service

import (
	"testing"

	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func TestApplyToMatching(t *testing.T) {
	svc := newTestService(t)

	t.Run("apply_flips_request_to_waiting", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		application, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}

		if application.Status != types.MatchingApplicationStatusPending {
			t.Errorf("got application status %s, want PENDING", application.Status)
		}

		request, err := svc.MatchingRequest(host, types.RetrieveMatchingRequest{RequestID: requestID})
		if err != nil {
			t.Fatalf("retrieve request: %v", err)
		}
		if request.Status != types.MatchingRequestStatusWaiting {
			t.Errorf("got request status %s, want WAITING", request.Status)
		}
		if request.PendingApplications != 1 {
			t.Errorf("got %d pending applications, want 1", request.PendingApplications)
		}
	})

	t.Run("host_cannot_apply_to_own_request", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 4)

		_, err := svc.ApplyToMatching(host, types.ApplyToMatching{RequestID: requestID})
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict", err)
		}
	})

	t.Run("duplicate_application_conflicts", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("first apply: %v", err)
		}

		_, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID})
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict", err)
		}
	})

	t.Run("applicant_joins_holding_room", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		room, err := svc.MatchingRoom(host, requestID)
		if err != nil {
			t.Fatalf("retrieve room: %v", err)
		}

		if len(room.ParticipantUserIDs) != 2 {
			t.Errorf("got %d participants, want 2 (host and applicant)", len(room.ParticipantUserIDs))
		}
	})

	t.Run("full_request_rejects_applications", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 2)

		guest := asUser(t, svc, "guest")
		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply within capacity: %v", err)
		}

		// One slot is reserved for the host, so a request for 2 takes a
		// single applicant.
		latecomer := asUser(t, svc, "latecomer")
		_, err := svc.ApplyToMatching(latecomer, types.ApplyToMatching{RequestID: requestID})
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict for full request", err)
		}
	})
}

func TestWithdrawApplication(t *testing.T) {
	svc := newTestService(t)

	t.Run("withdraw_last_pending_reopens_request", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		if err := svc.WithdrawApplication(guest, requestID); err != nil {
			t.Fatalf("withdraw: %v", err)
		}

		request, err := svc.MatchingRequest(host, types.RetrieveMatchingRequest{RequestID: requestID})
		if err != nil {
			t.Fatalf("retrieve request: %v", err)
		}
		if request.Status != types.MatchingRequestStatusOpen {
			t.Errorf("got request status %s, want OPEN after last withdrawal", request.Status)
		}
	})

	t.Run("withdraw_then_reapply", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := svc.WithdrawApplication(guest, requestID); err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("reapply after withdraw: %v", err)
		}
	})

	t.Run("withdraw_without_pending_application", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		err := svc.WithdrawApplication(guest, requestID)
		if !errs.IsNotFound(err) {
			t.Fatalf("got %v, want not found", err)
		}
	})
}

func TestUpdateApplicationStatus(t *testing.T) {
	svc := newTestService(t)

	t.Run("host_accepts_application", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		application, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}

		updated, err := svc.UpdateApplicationStatus(host, types.UpdateApplicationStatus{
			ApplicationID: application.ID,
			Status:        types.MatchingApplicationStatusAccepted,
		})
		if err != nil {
			t.Fatalf("accept application: %v", err)
		}
		if updated.Status != types.MatchingApplicationStatusAccepted {
			t.Errorf("got status %s, want ACCEPTED", updated.Status)
		}
	})

	t.Run("only_host_decides", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		application, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}

		_, err = svc.UpdateApplicationStatus(guest, types.UpdateApplicationStatus{
			ApplicationID: application.ID,
			Status:        types.MatchingApplicationStatusAccepted,
		})
		if !errs.IsPermissionDenied(err) {
			t.Fatalf("got %v, want permission denied", err)
		}
	})

	t.Run("decided_application_is_final", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		application, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}

		if _, err := svc.UpdateApplicationStatus(host, types.UpdateApplicationStatus{
			ApplicationID: application.ID,
			Status:        types.MatchingApplicationStatusRejected,
		}); err != nil {
			t.Fatalf("reject application: %v", err)
		}

		_, err = svc.UpdateApplicationStatus(host, types.UpdateApplicationStatus{
			ApplicationID: application.ID,
			Status:        types.MatchingApplicationStatusAccepted,
		})
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict for already decided application", err)
		}
	})
}

func TestCanApply(t *testing.T) {
	svc := newTestService(t)

	host := asUser(t, svc, "host")
	guest := asUser(t, svc, "guest")
	requestID := createTestRequest(t, svc, host, 4)

	ok, err := svc.CanApply(guest, requestID)
	if err != nil {
		t.Fatalf("can apply: %v", err)
	}
	if !ok {
		t.Error("fresh guest should be able to apply")
	}

	ok, err = svc.CanApply(host, requestID)
	if err != nil {
		t.Fatalf("can apply as host: %v", err)
	}
	if ok {
		t.Error("host should not be able to apply to own request")
	}

	if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	ok, err = svc.CanApply(guest, requestID)
	if err != nil {
		t.Fatalf("can apply after applying: %v", err)
	}
	if ok {
		t.Error("guest with a pending application should not be able to apply again")
	}
}
