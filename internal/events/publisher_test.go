package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEventPublisher_ConcurrentPublish(t *testing.T) {
	publisher := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = publisher.Publish(context.Background(), NewEvent(EventAttemptSubmitted, 7, AttemptSubmittedEvent{AttemptID: "a"}))
		}()
	}
	wg.Wait()

	assert.Len(t, publisher.GetPublishedEvents(), 20)
	assert.Len(t, publisher.EventsOfType(EventAttemptSubmitted), 20)
	assert.Empty(t, publisher.EventsOfType(EventAttemptStarted))

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestNewEvent_Envelope(t *testing.T) {
	event := NewEvent(EventParticipantRegistered, 3, ParticipantRegisteredEvent{ParticipantID: "p-1"})

	require.NotEmpty(t, event.ID)
	assert.Equal(t, eventSource, event.Source)
	assert.Equal(t, eventVersion, event.Version)
	assert.Equal(t, uint(3), event.ExamID)

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"participant.registered"`)
	assert.Contains(t, string(raw), `"participant_id":"p-1"`)
}
