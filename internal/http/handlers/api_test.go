package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jungeol66104/firework-web-sub001/internal/ai"
	"github.com/jungeol66104/firework-web-sub001/internal/domain"
	"github.com/jungeol66104/firework-web-sub001/internal/queue"
	"github.com/jungeol66104/firework-web-sub001/internal/repository"
	"github.com/jungeol66104/firework-web-sub001/internal/service"
	"github.com/jungeol66104/firework-web-sub001/internal/worker"
)

type fixedGenerator struct {
	text string
}

func (g fixedGenerator) Available() bool { return true }

func (g fixedGenerator) Generate(_ context.Context, _ ai.GenerateRequest) (ai.GenerateResult, error) {
	return ai.GenerateResult{Text: g.text, ModelID: "test-model"}, nil
}

type apiFixture struct {
	api      *API
	jobs     *repository.MemoryJobsRepository
	ledger   *repository.MemoryTokenLedger
	versions *repository.MemoryVersionsRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	bundle := make(map[string][]string)
	for _, category := range domain.Categories {
		items := make([]string, domain.SlotsPerCategory)
		for index := range items {
			items[index] = fmt.Sprintf("q %d", index)
		}
		bundle[category] = items
	}
	encoded, _ := json.Marshal(bundle)
	return newAPIFixtureWithGenerator(t, fixedGenerator{text: string(encoded)})
}

func newAPIFixtureWithGenerator(t *testing.T, generator ai.TextGenerator) *apiFixture {
	t.Helper()
	jobs := repository.NewMemoryJobsRepository()
	ledger := repository.NewMemoryTokenLedger()
	versions := repository.NewMemoryVersionsRepository()
	interviews := repository.NewMemoryInterviewsRepository()
	tokens := service.NewTokenService(ledger)

	interviews.PutInterview(&domain.Interview{
		ID:          "interview-1",
		UserID:      "user-1",
		CompanyName: "Acme",
		JobTitle:    "Engineer",
	})
	if err := ledger.SetBalance("user-1", 10); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	processor := worker.NewProcessor(worker.Dependencies{
		Jobs:          jobs,
		Tokens:        tokens,
		Interviews:    interviews,
		Versions:      versions,
		Notifications: repository.NewMemoryNotificationsRepository(),
		Generation:    service.NewGenerationService(generator, nil),
	})

	dispatcher := queue.NewLocalQueue(64, 3, nil)
	jobsService := service.NewJobsService(jobs, tokens, dispatcher)
	return &apiFixture{
		api:      NewAPI(jobsService, tokens, versions, processor),
		jobs:     jobs,
		ledger:   ledger,
		versions: versions,
	}
}

func TestCreateQAJobAccepted(t *testing.T) {
	fixture := newAPIFixture(t)

	body := `{"user_id":"user-1","type":"questions_generated"}`
	request := httptest.NewRequest(http.MethodPost, "/v1/interviews/interview-1/qa", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	fixture.api.Interviews(recorder, request)

	if recorder.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	jobID, _ := response["job_id"].(string)
	if jobID == "" {
		t.Fatalf("expected job_id in response")
	}
	if response["status"] != string(domain.JobStatusQueued) {
		t.Fatalf("expected queued status, got %v", response["status"])
	}

	job, err := fixture.jobs.GetJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job must be persisted: %v", err)
	}
	if job.Kind != domain.JobKindQuestionsGenerated {
		t.Fatalf("unexpected kind %s", job.Kind)
	}
}

func TestCreateQAJobInsufficientTokens(t *testing.T) {
	fixture := newAPIFixture(t)
	if err := fixture.ledger.SetBalance("user-1", 0.05); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	body := `{"user_id":"user-1","type":"questions_generated"}`
	request := httptest.NewRequest(http.MethodPost, "/v1/interviews/interview-1/qa", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	fixture.api.Interviews(recorder, request)

	if recorder.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", recorder.Code)
	}
}

func TestCreateQAJobUnknownType(t *testing.T) {
	fixture := newAPIFixture(t)

	body := `{"user_id":"user-1","type":"make_it_better"}`
	request := httptest.NewRequest(http.MethodPost, "/v1/interviews/interview-1/qa", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	fixture.api.Interviews(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	fixture := newAPIFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	recorder := httptest.NewRecorder()
	fixture.api.JobStatus(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestCancelCompletedJobConflicts(t *testing.T) {
	fixture := newAPIFixture(t)
	now := time.Now().UTC()
	_ = fixture.jobs.CreateJob(context.Background(), &domain.Job{
		ID: "job-1", UserID: "user-1", InterviewID: "interview-1",
		Kind: domain.JobKindQuestionsGenerated, Status: domain.JobStatusQueued,
		CreatedAt: now, UpdatedAt: now,
	})
	if err := fixture.jobs.CompleteJob(context.Background(), "job-1", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/v1/jobs/cancel", strings.NewReader(`{"job_id":"job-1"}`))
	recorder := httptest.NewRecorder()
	fixture.api.CancelJob(recorder, request)

	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
}

func TestProcessWebhookCompletesJob(t *testing.T) {
	fixture := newAPIFixture(t)
	now := time.Now().UTC()
	_ = fixture.jobs.CreateJob(context.Background(), &domain.Job{
		ID: "job-1", UserID: "user-1", InterviewID: "interview-1",
		Kind: domain.JobKindQuestionsGenerated, Status: domain.JobStatusQueued,
		CreatedAt: now, UpdatedAt: now,
	})

	payload, _ := json.Marshal(domain.QueueMessage{
		JobID:       "job-1",
		Kind:        domain.JobKindQuestionsGenerated,
		UserID:      "user-1",
		InterviewID: "interview-1",
		RequestedAt: now,
	})
	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(string(payload)))
	recorder := httptest.NewRecorder()
	fixture.api.Process(domain.JobKindQuestionsGenerated)(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	job, _ := fixture.jobs.GetJob(context.Background(), "job-1")
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if _, err := fixture.versions.GetDefault(context.Background(), "interview-1"); err != nil {
		t.Fatalf("expected a default version: %v", err)
	}
}

func TestProcessWebhookAcknowledgesInvalidOutput(t *testing.T) {
	fixture := newAPIFixtureWithGenerator(t, fixedGenerator{text: "not json at all"})
	now := time.Now().UTC()
	_ = fixture.jobs.CreateJob(context.Background(), &domain.Job{
		ID: "job-1", UserID: "user-1", InterviewID: "interview-1",
		Kind: domain.JobKindQuestionsGenerated, Status: domain.JobStatusQueued,
		CreatedAt: now, UpdatedAt: now,
	})

	payload, _ := json.Marshal(domain.QueueMessage{
		JobID:       "job-1",
		Kind:        domain.JobKindQuestionsGenerated,
		UserID:      "user-1",
		InterviewID: "interview-1",
		RequestedAt: now,
	})
	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(string(payload)))
	recorder := httptest.NewRecorder()
	fixture.api.Process(domain.JobKindQuestionsGenerated)(recorder, request)

	// The job is failed and refunded; a 5xx here would only provoke
	// broker redeliveries the claim guard then discards.
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response["processed"] != false {
		t.Fatalf("expected processed=false, got %v", response["processed"])
	}

	job, _ := fixture.jobs.GetJob(context.Background(), "job-1")
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	balance, _ := fixture.ledger.Balance(context.Background(), "user-1")
	if balance != 10 {
		t.Fatalf("expected full refund, got %.2f", balance)
	}
}

func TestProcessWebhookRejectsKindMismatch(t *testing.T) {
	fixture := newAPIFixture(t)

	payload, _ := json.Marshal(domain.QueueMessage{
		JobID: "job-1",
		Kind:  domain.JobKindAnswersGenerated,
	})
	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(string(payload)))
	recorder := httptest.NewRecorder()
	fixture.api.Process(domain.JobKindQuestionsGenerated)(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestVersionListAndPromote(t *testing.T) {
	fixture := newAPIFixture(t)
	base := time.Now().UTC()
	for index, id := range []string{"v1", "v2"} {
		err := fixture.versions.CreateVersion(context.Background(), &domain.QAVersion{
			ID:          id,
			InterviewID: "interview-1",
			Name:        "Version " + id,
			Kind:        domain.VersionKindQuestionsGenerated,
			Questions:   domain.EmptyQuestionBundle(),
			Answers:     domain.EmptyAnswerBundle(),
			IsDefault:   true,
			CreatedAt:   base.Add(time.Duration(index) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	request := httptest.NewRequest(http.MethodGet, "/v1/interviews/interview-1/versions", nil)
	recorder := httptest.NewRecorder()
	fixture.api.Interviews(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list versions: got %d", recorder.Code)
	}
	var listResponse struct {
		Versions []map[string]any `json:"versions"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &listResponse); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResponse.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(listResponse.Versions))
	}

	request = httptest.NewRequest(http.MethodPost, "/v1/versions/v1/promote", nil)
	recorder = httptest.NewRecorder()
	fixture.api.Versions(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("promote: got %d", recorder.Code)
	}

	current, err := fixture.versions.GetDefault(context.Background(), "interview-1")
	if err != nil || current.ID != "v1" {
		t.Fatalf("expected v1 promoted, got %v err=%v", current, err)
	}
}

func TestTokenBalanceAndCredit(t *testing.T) {
	fixture := newAPIFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/v1/tokens/balance?user_id=user-1", nil)
	recorder := httptest.NewRecorder()
	fixture.api.TokenBalance(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("balance: got %d", recorder.Code)
	}
	var balanceResponse map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &balanceResponse)
	if balanceResponse["balance"].(float64) != 10 {
		t.Fatalf("expected balance 10, got %v", balanceResponse["balance"])
	}

	request = httptest.NewRequest(http.MethodPost, "/v1/tokens/credit", strings.NewReader(`{"user_id":"user-1","amount":2.5}`))
	recorder = httptest.NewRecorder()
	fixture.api.TokenCredit(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("credit: got %d", recorder.Code)
	}
	var creditResponse map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &creditResponse)
	if creditResponse["balance"].(float64) != 12.5 {
		t.Fatalf("expected balance 12.5, got %v", creditResponse["balance"])
	}
}

func TestTokenCreditRejectsNonPositiveAmount(t *testing.T) {
	fixture := newAPIFixture(t)

	request := httptest.NewRequest(http.MethodPost, "/v1/tokens/credit", strings.NewReader(`{"user_id":"user-1","amount":0}`))
	recorder := httptest.NewRecorder()
	fixture.api.TokenCredit(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
