//go:build integration

package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestAPIVersion(t *testing.T) {
	resp, data := doRequest(t, http.MethodGet, testServer.URL+"/api/v1/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Version != "1.0.0" {
		t.Fatalf("version = %q, want 1.0.0", body.Version)
	}
}

func TestCurrentUserWithAuthDisabled(t *testing.T) {
	// Auth is disabled in TestMain, so every request runs as the
	// stand-in admin.
	resp, data := doRequest(t, http.MethodGet, testServer.URL+"/api/v1/auth/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var me struct {
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !me.IsAdmin {
		t.Error("stand-in user is not an admin")
	}
	if me.Email == "" {
		t.Error("stand-in user has no email")
	}
}

func TestStatsEndpoint(t *testing.T) {
	cleanDB(testPool)

	resp, data := doRequest(t, http.MethodGet, testServer.URL+"/api/v1/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}

	var stats map[string]int
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"users", "projects", "assignments"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("stats missing %q: %v", key, stats)
		}
	}
	if stats["projects"] != 0 {
		t.Errorf("projects = %d on a clean database, want 0", stats["projects"])
	}
}
