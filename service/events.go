package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ridematch/ridematch/types"
)

var roomEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ridematch_room_events_published_total",
	Help: "Room events published to the realtime channel, by kind.",
}, []string{"kind"})

func roomTopic(requestID string) string {
	return "rooms." + requestID
}

// publishRoomEvent broadcasts an event followed by a fresh room-state
// snapshot. Best-effort: failures are logged and never propagate to the
// mutation that triggered the publish.
func (svc *Service) publishRoomEvent(ctx context.Context, room types.MatchingRoom, event types.RoomEvent) {
	event.RequestID = room.MatchingRequestID

	svc.publish(event)

	state, err := svc.roomState(ctx, room)
	if err != nil {
		svc.Logger.Error("compute room state", "request_id", room.MatchingRequestID, "err", err)
		return
	}

	svc.publish(types.RoomEvent{
		Kind:      types.RoomEventKindState,
		RequestID: room.MatchingRequestID,
		State:     &state,
	})
}

func (svc *Service) publish(event types.RoomEvent) {
	b, err := json.Marshal(event)
	if err != nil {
		svc.Logger.Error("encode room event", "kind", event.Kind, "request_id", event.RequestID, "err", err)
		return
	}

	if err := svc.PubSub.Pub(roomTopic(event.RequestID), b); err != nil {
		svc.Logger.Error("publish room event", "kind", event.Kind, "request_id", event.RequestID, "err", err)
		return
	}

	roomEventsPublished.WithLabelValues(string(event.Kind)).Inc()
}

func (svc *Service) roomState(ctx context.Context, room types.MatchingRoom) (types.RoomState, error) {
	request, err := svc.Postgres.MatchingRequest(ctx, room.MatchingRequestID)
	if err != nil {
		return types.RoomState{}, err
	}

	return types.RoomState{
		RequestID:       room.MatchingRequestID,
		Participants:    room.Participants,
		CurrentCount:    len(room.ParticipantUserIDs),
		MaxParticipants: request.MaxParticipants,
		IsConfirmed:     room.Status == types.MatchingRoomStatusConfirmed,
	}, nil
}

// RoomStream delivers room events for a request in realtime, from
// subscription time onward. The channel closes when ctx is cancelled.
func (svc *Service) RoomStream(ctx context.Context, requestID string) (<-chan types.RoomEvent, error) {
	events := make(chan types.RoomEvent)

	unsub, err := svc.PubSub.Sub(roomTopic(requestID), func(data []byte) {
		var event types.RoomEvent
		if err := json.Unmarshal(data, &event); err != nil {
			svc.Logger.Error("decode room event", "request_id", requestID, "err", err)
			return
		}

		select {
		case events <- event:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to room events: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := unsub(); err != nil {
			svc.Logger.Error("unsubscribe from room events", "request_id", requestID, "err", err)
		}

		close(events)
	}()

	return events, nil
}
