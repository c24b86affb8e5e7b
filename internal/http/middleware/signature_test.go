package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func signatureTestHandler(t *testing.T, sawBody *string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body in handler: %v", err)
		}
		*sawBody = string(body)
		w.WriteHeader(http.StatusOK)
	})
}

func TestSignatureAcceptsValidSignature(t *testing.T) {
	var sawBody string
	handler := Signature("signing-key")(signatureTestHandler(t, &sawBody))

	body := `{"job_id":"job-1"}`
	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(body))
	request.Header.Set("Upstash-Signature", SignBody("signing-key", []byte(body)))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if sawBody != body {
		t.Fatalf("body must be readable downstream, got %q", sawBody)
	}
}

func TestSignatureRejectsBadSignature(t *testing.T) {
	var sawBody string
	handler := Signature("signing-key")(signatureTestHandler(t, &sawBody))

	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(`{}`))
	request.Header.Set("Upstash-Signature", "forged")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if sawBody != "" {
		t.Fatalf("handler must not run on rejected signature")
	}
}

func TestSignatureRejectsMissingHeader(t *testing.T) {
	var sawBody string
	handler := Signature("signing-key")(signatureTestHandler(t, &sawBody))

	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestSignatureSkipsNonWebhookRoutes(t *testing.T) {
	var sawBody string
	handler := Signature("signing-key")(signatureTestHandler(t, &sawBody))

	request := httptest.NewRequest(http.MethodPost, "/v1/jobs/cancel", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("non-webhook routes must pass through, got %d", recorder.Code)
	}
}

func TestSignatureDisabledWithoutKey(t *testing.T) {
	var sawBody string
	handler := Signature("")(signatureTestHandler(t, &sawBody))

	request := httptest.NewRequest(http.MethodPost, "/v1/process/questions-generated", strings.NewReader(`{}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("empty key must disable verification, got %d", recorder.Code)
	}
}
