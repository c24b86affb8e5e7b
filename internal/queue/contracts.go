package queue

import (
	"context"
	"fmt"

	"github.com/jungeol66104/firework-web-sub001/internal/domain"
)

// Dispatcher hands a job to a broker for asynchronous delivery to the
// processing webhook. Delivery is at-least-once; the processor's claim step
// absorbs redelivery.
type Dispatcher interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
}

// Consumer drives a handler from a self-hosted queue backend. The hosted
// broker path delivers over HTTP instead and does not use this interface.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, domain.QueueMessage) error) error
}

// webhookPaths is the explicit kind-to-endpoint table. A new job kind does
// not route until it gets an entry here, which keeps a missing endpoint a
// compile-visible change instead of a silent string transformation.
var webhookPaths = map[domain.JobKind]string{
	domain.JobKindQuestionsGenerated:  "/v1/process/questions-generated",
	domain.JobKindAnswersGenerated:    "/v1/process/answers-generated",
	domain.JobKindQuestionEdited:      "/v1/process/question-edited",
	domain.JobKindQuestionRegenerated: "/v1/process/question-regenerated",
	domain.JobKindAnswerEdited:        "/v1/process/answer-edited",
	domain.JobKindAnswerRegenerated:   "/v1/process/answer-regenerated",
}

// WebhookPath resolves the processing endpoint path for a job kind.
func WebhookPath(kind domain.JobKind) (string, error) {
	path, ok := webhookPaths[kind]
	if !ok {
		return "", fmt.Errorf("no webhook route for job kind %q", kind)
	}
	return path, nil
}

// WebhookRoutes returns every registered (kind, path) pair for router setup.
func WebhookRoutes() map[domain.JobKind]string {
	routes := make(map[domain.JobKind]string, len(webhookPaths))
	for kind, path := range webhookPaths {
		routes[kind] = path
	}
	return routes
}
