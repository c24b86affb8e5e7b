package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
)

const signatureHeader = "Upstash-Signature"

// Signature verifies the broker's HMAC-SHA256 body signature on webhook
// routes under /v1/process/. An empty signing key disables verification,
// which is the local development mode.
func Signature(signingKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/v1/process/") || signingKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeSignatureRejected(w, r)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			provided := strings.TrimSpace(r.Header.Get(signatureHeader))
			if provided == "" || !verifySignature(signingKey, body, provided) {
				writeSignatureRejected(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func verifySignature(signingKey string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(signingKey))
	_, _ = mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func writeSignatureRejected(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"invalid_signature","message":"webhook signature verification failed"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
}

// SignBody computes the signature value a trusted publisher would attach.
// Exposed for the local dispatcher and tests.
func SignBody(signingKey string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
