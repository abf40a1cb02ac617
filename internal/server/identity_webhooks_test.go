package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signIdentity(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postIdentity(engine http.Handler, payload, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/identity", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(identitySignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestIdentityWebhook_AcceptsSignedEvent(t *testing.T) {
	engine, _ := newTestServer(t)

	payload := `{"type":"user.created","id":"sub_1","email":"u@example.com"}`
	rec := postIdentity(engine, payload, signIdentity(payload, "identity_secret"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityWebhook_RejectsBadSignature(t *testing.T) {
	engine, _ := newTestServer(t)

	payload := `{"type":"user.created","id":"sub_1","email":"u@example.com"}`
	rec := postIdentity(engine, payload, signIdentity(payload, "wrong_secret"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postIdentity(engine, payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentityWebhook_RejectsMalformedBody(t *testing.T) {
	engine, _ := newTestServer(t)

	payload := `not json`
	rec := postIdentity(engine, payload, signIdentity(payload, "identity_secret"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
