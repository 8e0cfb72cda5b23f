package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ridematch/ridematch/errs"
	"github.com/ridematch/ridematch/types"
)

func TestEnsureMatchingRoom(t *testing.T) {
	svc := newTestService(t)

	host := asUser(t, svc, "host")
	requestID := createTestRequest(t, svc, host, 4)

	room, err := svc.EnsureMatchingRoom(host, requestID)
	if err != nil {
		t.Fatalf("ensure room: %v", err)
	}

	if room.Status != types.MatchingRoomStatusWaiting {
		t.Errorf("got status %s, want WAITING", room.Status)
	}
	if len(room.ParticipantUserIDs) != 1 {
		t.Fatalf("got %d participants, want just the host", len(room.ParticipantUserIDs))
	}

	// Repeated calls return the same room.
	again, err := svc.EnsureMatchingRoom(host, requestID)
	if err != nil {
		t.Fatalf("ensure room again: %v", err)
	}
	if again.ID != room.ID {
		t.Errorf("got a different room on second ensure: %s != %s", again.ID, room.ID)
	}
	if len(again.ParticipantUserIDs) != 1 {
		t.Errorf("got %d participants after second ensure, want 1", len(again.ParticipantUserIDs))
	}
}

func TestJoinMatchingRoom(t *testing.T) {
	svc := newTestService(t)

	t.Run("join_is_idempotent", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		room, err := svc.JoinMatchingRoom(guest, requestID)
		if err != nil {
			t.Fatalf("join: %v", err)
		}
		if len(room.ParticipantUserIDs) != 2 {
			t.Fatalf("got %d participants, want 2", len(room.ParticipantUserIDs))
		}

		room, err = svc.JoinMatchingRoom(guest, requestID)
		if err != nil {
			t.Fatalf("second join: %v", err)
		}
		if len(room.ParticipantUserIDs) != 2 {
			t.Errorf("got %d participants after double join, want 2", len(room.ParticipantUserIDs))
		}
	})

	t.Run("host_cannot_join_as_guest", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		_, err := svc.JoinMatchingRoom(host, requestID)
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict", err)
		}
	})

	t.Run("full_room_rejects_joins", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 2)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		guest := asUser(t, svc, "guest")
		if _, err := svc.JoinMatchingRoom(guest, requestID); err != nil {
			t.Fatalf("join within capacity: %v", err)
		}

		latecomer := asUser(t, svc, "latecomer")
		_, err := svc.JoinMatchingRoom(latecomer, requestID)
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict for full room", err)
		}
	})

	t.Run("participants_are_hydrated", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		room, err := svc.JoinMatchingRoom(guest, requestID)
		if err != nil {
			t.Fatalf("join: %v", err)
		}

		if len(room.Participants) != 2 {
			t.Fatalf("got %d hydrated participants, want 2", len(room.Participants))
		}
		if !room.Participants[0].IsHost {
			t.Error("first participant should be the host")
		}
		if room.Participants[0].DisplayName != "host" {
			t.Errorf("got host display name %q, want host", room.Participants[0].DisplayName)
		}
	})
}

func TestJoinMatchingRoomConcurrent(t *testing.T) {
	svc := newTestService(t)

	const maxParticipants = 3

	host := asUser(t, svc, "host")
	requestID := createTestRequest(t, svc, host, maxParticipants)

	if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
		t.Fatalf("ensure room: %v", err)
	}

	// Many more joiners than free slots, all racing the same room row.
	const joiners = 8
	ctxs := make([]context.Context, joiners)
	for i := range joiners {
		ctxs[i] = asUser(t, svc, fmt.Sprintf("guest-%d", i))
	}

	joinErrs := make([]error, joiners)

	var wg sync.WaitGroup
	for i := range joiners {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, joinErrs[i] = svc.JoinMatchingRoom(ctxs[i], requestID)
		}()
	}
	wg.Wait()

	var joined, rejected int
	for i, err := range joinErrs {
		switch {
		case err == nil:
			joined++
		case errs.IsConflict(err):
			rejected++
		default:
			t.Errorf("joiner %d got unexpected error: %v", i, err)
		}
	}

	// One slot belongs to the host; the rest are first come, first served.
	if joined != maxParticipants-1 {
		t.Errorf("got %d successful joins, want %d", joined, maxParticipants-1)
	}
	if rejected != joiners-(maxParticipants-1) {
		t.Errorf("got %d rejected joins, want %d", rejected, joiners-(maxParticipants-1))
	}

	room, err := svc.MatchingRoom(host, requestID)
	if err != nil {
		t.Fatalf("retrieve room: %v", err)
	}
	if len(room.ParticipantUserIDs) != maxParticipants {
		t.Errorf("got %d participants, want exactly %d", len(room.ParticipantUserIDs), maxParticipants)
	}
	if room.ParticipantUserIDs[0] != room.Participants[0].UserID || !room.Participants[0].IsHost {
		t.Error("host should still be the first participant")
	}
}

func TestLeaveMatchingRoom(t *testing.T) {
	svc := newTestService(t)

	t.Run("guest_leaves", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}
		if _, err := svc.JoinMatchingRoom(guest, requestID); err != nil {
			t.Fatalf("join: %v", err)
		}

		room, err := svc.LeaveMatchingRoom(guest, requestID)
		if err != nil {
			t.Fatalf("leave: %v", err)
		}
		if len(room.ParticipantUserIDs) != 1 {
			t.Errorf("got %d participants after leave, want 1", len(room.ParticipantUserIDs))
		}
	})

	t.Run("host_cannot_leave", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		_, err := svc.LeaveMatchingRoom(host, requestID)
		if !errs.IsPermissionDenied(err) {
			t.Fatalf("got %v, want permission denied", err)
		}
	})

	t.Run("non_participant_cannot_leave", func(t *testing.T) {
		host := asUser(t, svc, "host")
		stranger := asUser(t, svc, "stranger")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		_, err := svc.LeaveMatchingRoom(stranger, requestID)
		if !errs.IsNotFound(err) {
			t.Fatalf("got %v, want not found", err)
		}
	})
}

func TestConfirmMatchingRoom(t *testing.T) {
	svc := newTestService(t)

	t.Run("needs_minimum_participants", func(t *testing.T) {
		host := asUser(t, svc, "host")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
			t.Fatalf("ensure room: %v", err)
		}

		_, err := svc.ConfirmMatchingRoom(host, requestID)
		if !errs.IsConflict(err) {
			t.Fatalf("got %v, want conflict for lone host", err)
		}
	})

	t.Run("only_host_confirms", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		_, err := svc.ConfirmMatchingRoom(guest, requestID)
		if !errs.IsPermissionDenied(err) {
			t.Fatalf("got %v, want permission denied", err)
		}
	})

	t.Run("confirm_locks_room_and_request", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		room, err := svc.ConfirmMatchingRoom(host, requestID)
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if room.Status != types.MatchingRoomStatusConfirmed {
			t.Errorf("got room status %s, want CONFIRMED", room.Status)
		}

		request, err := svc.MatchingRequest(host, types.RetrieveMatchingRequest{RequestID: requestID})
		if err != nil {
			t.Fatalf("retrieve request: %v", err)
		}
		if request.Status != types.MatchingRequestStatusConfirmed {
			t.Errorf("got request status %s, want CONFIRMED", request.Status)
		}

		// Membership is frozen once confirmed.
		latecomer := asUser(t, svc, "latecomer")
		if _, err := svc.JoinMatchingRoom(latecomer, requestID); !errs.IsConflict(err) {
			t.Errorf("got %v, want conflict joining a confirmed room", err)
		}

		if _, err := svc.ConfirmMatchingRoom(host, requestID); !errs.IsConflict(err) {
			t.Errorf("got %v, want conflict re-confirming", err)
		}
	})
}

func TestDisbandMatchingRoom(t *testing.T) {
	svc := newTestService(t)

	t.Run("only_host_disbands", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		_, err := svc.DisbandMatchingRoom(guest, requestID)
		if !errs.IsPermissionDenied(err) {
			t.Fatalf("got %v, want permission denied", err)
		}
	})

	t.Run("disband_closes_request", func(t *testing.T) {
		host := asUser(t, svc, "host")
		guest := asUser(t, svc, "guest")
		requestID := createTestRequest(t, svc, host, 4)

		if _, err := svc.ApplyToMatching(guest, types.ApplyToMatching{RequestID: requestID}); err != nil {
			t.Fatalf("apply: %v", err)
		}

		room, err := svc.DisbandMatchingRoom(host, requestID)
		if err != nil {
			t.Fatalf("disband: %v", err)
		}
		if room.Status != types.MatchingRoomStatusDisbanded {
			t.Errorf("got room status %s, want DISBANDED", room.Status)
		}

		request, err := svc.MatchingRequest(host, types.RetrieveMatchingRequest{RequestID: requestID})
		if err != nil {
			t.Fatalf("retrieve request: %v", err)
		}
		if request.Status != types.MatchingRequestStatusClosed {
			t.Errorf("got request status %s, want CLOSED", request.Status)
		}
	})
}

func TestRoomStream(t *testing.T) {
	svc := newTestService(t)

	host := asUser(t, svc, "host")
	guest := asUser(t, svc, "guest")
	requestID := createTestRequest(t, svc, host, 4)

	if _, err := svc.EnsureMatchingRoom(host, requestID); err != nil {
		t.Fatalf("ensure room: %v", err)
	}

	events, err := svc.RoomStream(t.Context(), requestID)
	if err != nil {
		t.Fatalf("room stream: %v", err)
	}

	if _, err := svc.JoinMatchingRoom(guest, requestID); err != nil {
		t.Fatalf("join: %v", err)
	}

	// A membership change is followed by a state snapshot.
	first := <-events
	if first.Kind != types.RoomEventKindJoined {
		t.Fatalf("got first event kind %s, want joined", first.Kind)
	}
	if first.RequestID != requestID {
		t.Errorf("got event request ID %s, want %s", first.RequestID, requestID)
	}
	if first.Joined == nil || first.Joined.DisplayName != "guest" {
		t.Errorf("joined payload missing or wrong: %+v", first.Joined)
	}

	second := <-events
	if second.Kind != types.RoomEventKindState {
		t.Fatalf("got second event kind %s, want state", second.Kind)
	}
	if second.State == nil {
		t.Fatal("state payload missing")
	}
	if second.State.CurrentCount != 2 {
		t.Errorf("got current count %d, want 2", second.State.CurrentCount)
	}
	if second.State.MaxParticipants != 4 {
		t.Errorf("got max participants %d, want 4", second.State.MaxParticipants)
	}
	if second.State.IsConfirmed {
		t.Error("room should not be confirmed yet")
	}
}
