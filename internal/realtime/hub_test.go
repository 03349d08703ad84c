package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubDeliversToUserChannelInOrder(t *testing.T) {
	hub := NewSSEHub(logger.Nop(), nil)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)

	hub.Broadcast(ToUser(userID, SSEEventLessonProgressChanged, map[string]any{"seq": 1}))
	hub.Broadcast(ToUser(userID, SSEEventEnrollmentStatusChanged, map[string]any{"seq": 2}))
	hub.Broadcast(ToUser(uuid.New(), SSEEventAssessmentFinished, nil))

	first := recvMessage(t, client.Outbound, time.Second)
	second := recvMessage(t, client.Outbound, time.Second)
	if first.Event != SSEEventLessonProgressChanged {
		t.Fatalf("first event: want=%s got=%s", SSEEventLessonProgressChanged, first.Event)
	}
	if second.Event != SSEEventEnrollmentStatusChanged {
		t.Fatalf("second event: want=%s got=%s", SSEEventEnrollmentStatusChanged, second.Event)
	}
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message for other user: %v", msg)
	default:
	}
}

func TestSSEHubCloseClientIsIdempotent(t *testing.T) {
	hub := NewSSEHub(logger.Nop(), nil)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.CloseClient(client)
	hub.CloseClient(client)

	if _, ok := <-client.Outbound; ok {
		t.Fatalf("outbound should be closed after CloseClient")
	}
	if got := hub.Subscribers(UserChannel(userID)); got != 0 {
		t.Fatalf("subscribers: want=0 got=%d", got)
	}
	hub.Broadcast(ToUser(userID, SSEEventAssessmentFinished, nil))
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	hub := NewSSEHub(logger.Nop(), nil)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	for i := 0; i < outboundBuffer+5; i++ {
		hub.Broadcast(ToUser(userID, SSEEventAssessmentQuestionAdvanced, i))
	}
	if got := len(client.Outbound); got != outboundBuffer {
		t.Fatalf("buffered: want=%d got=%d", outboundBuffer, got)
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop(), nil)
	userID := uuid.New()
	client := hub.NewSSEClient(userID)
	hub.Broadcast(ToUser(userID, SSEEventAssessmentFinished, map[string]any{"passed": true}))

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/sse/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: AssessmentFinished\n") {
		t.Fatalf("missing event line in %q", body)
	}
	if !strings.Contains(body, `"passed":true`) {
		t.Fatalf("missing payload in %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: want=text/event-stream got=%s", ct)
	}
}
