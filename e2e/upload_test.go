package e2e

import (
	"net/http"
	"strings"
	"testing"
)

const sampleLog = `[2025-01-15T10:00:00Z] INFO Server started {"port": 8080}
[2025-01-15T10:00:01Z] ERROR Database connection failed {"ip": "192.168.1.1"}
`

func TestUploadLog_Success(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequestRaw(t, ta, http.MethodPost, "/api/logs/upload", sampleLog)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["jobId"] == nil || result["jobId"] == "" {
		t.Error("expected 'jobId' in response")
	}
	fileURL, _ := result["fileUrl"].(string)
	if fileURL == "" {
		t.Error("expected 'fileUrl' in response")
	}
	if !strings.Contains(fileURL, "log-") || !strings.Contains(fileURL, ".log") {
		t.Errorf("expected file URL naming log-<epoch>.log, got %q", fileURL)
	}
}

func TestUploadLog_EmptyBody(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequestRaw(t, ta, http.MethodPost, "/api/logs/upload", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusBadRequest)

	result := parseJSON(t, resp)
	if result["error"] == nil {
		t.Error("expected 'error' in response")
	}
}

func TestUploadLog_NoAuth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/logs/upload", sampleLog, "text/plain", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestUploadLog_BadToken(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/logs/upload", sampleLog, "text/plain", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusUnauthorized)
}

// doAuthRequestRaw uploads a raw (non-JSON) body with auth.
func doAuthRequestRaw(t *testing.T, ta *testApp, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(ta.app, method, path, body, "text/plain", map[string]string{
		"Authorization": "Bearer " + token,
	})
}
