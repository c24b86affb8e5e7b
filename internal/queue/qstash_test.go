package queue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

func TestQStashDispatcherPublishesToKindWebhook(t *testing.T) {
	var gotPath, gotAuth, gotRetries string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer server.Close()

	dispatcher, err := NewQStashDispatcher(QStashConfig{
		BrokerURL:       server.URL,
		Token:           "qstash-token",
		CallbackBaseURL: "https://api.example.com",
		DeliveryRetries: 3,
		Timeout:         2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	message := domain.QueueMessage{
		JobID:       "job-1",
		Kind:        domain.JobKindAnswerEdited,
		UserID:      "user-1",
		InterviewID: "interview-1",
		RequestedAt: time.Now().UTC(),
	}
	if err := dispatcher.Enqueue(context.Background(), message); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	want := "/v2/publish/https://api.example.com/v1/process/answer-edited"
	if gotPath != want {
		t.Fatalf("expected publish path %q, got %q", want, gotPath)
	}
	if gotAuth != "Bearer qstash-token" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if gotRetries != "3" {
		t.Fatalf("expected Upstash-Retries 3, got %q", gotRetries)
	}

	var decoded domain.QueueMessage
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode published body: %v", err)
	}
	if decoded.JobID != "job-1" || decoded.Kind != domain.JobKindAnswerEdited {
		t.Fatalf("published message mismatch: %+v", decoded)
	}
}

func TestQStashDispatcherSurfacesBrokerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid destination"}`))
	}))
	defer server.Close()

	dispatcher, err := NewQStashDispatcher(QStashConfig{
		BrokerURL:       server.URL,
		Token:           "qstash-token",
		CallbackBaseURL: "https://api.example.com",
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	err = dispatcher.Enqueue(context.Background(), domain.QueueMessage{
		JobID: "job-1",
		Kind:  domain.JobKindQuestionsGenerated,
	})
	if err == nil {
		t.Fatalf("expected broker error")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "invalid destination") {
		t.Fatalf("expected status and detail in error, got %v", err)
	}
}

func TestQStashDispatcherRejectsUnknownKind(t *testing.T) {
	dispatcher, err := NewQStashDispatcher(QStashConfig{
		BrokerURL:       "https://qstash.example.com",
		Token:           "t",
		CallbackBaseURL: "https://api.example.com",
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	if err := dispatcher.Enqueue(context.Background(), domain.QueueMessage{Kind: "bogus"}); err == nil {
		t.Fatalf("expected unknown kind rejection")
	}
}

func TestWebhookRoutesCoverEveryKind(t *testing.T) {
	routes := WebhookRoutes()
	if len(routes) != len(domain.JobKinds) {
		t.Fatalf("expected %d routes, got %d", len(domain.JobKinds), len(routes))
	}
	seen := make(map[string]domain.JobKind)
	for _, kind := range domain.JobKinds {
		path, err := WebhookPath(kind)
		if err != nil {
			t.Fatalf("kind %s has no webhook path: %v", kind, err)
		}
		if !strings.HasPrefix(path, "/v1/process/") {
			t.Fatalf("unexpected path %q for kind %s", path, kind)
		}
		if previous, dup := seen[path]; dup {
			t.Fatalf("path %q shared by %s and %s", path, previous, kind)
		}
		seen[path] = kind
	}
}
