package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/feedclip/internal/config"
	"github.com/hitoshi/feedclip/internal/model"
)

func TestSettingsHandler_GetSyncInterval(t *testing.T) {
	h := NewSettingsHandler(&mockSettingsService{hours: 4}, nil)

	w := httptest.NewRecorder()
	h.GetSyncInterval(w, httptest.NewRequest(http.MethodGet, "/api/settings/sync-interval", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body syncIntervalBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Hours != 4 || body.MinHours != config.MinSyncIntervalHours || body.MaxHours != config.MaxSyncIntervalHours {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestSettingsHandler_PutSyncInterval(t *testing.T) {
	svc := &mockSettingsService{hours: 4}
	h := NewSettingsHandler(svc, nil)

	w := httptest.NewRecorder()
	h.PutSyncInterval(w, newJSONRequest(http.MethodPut, "/api/settings/sync-interval", `{"hours":12}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if svc.hours != 12 {
		t.Errorf("hours = %d, want 12", svc.hours)
	}
}

func TestSettingsHandler_PutSyncInterval_OutOfRange(t *testing.T) {
	svc := &mockSettingsService{
		hours: 4,
		setFn: func(ctx context.Context, hours int) error {
			return model.NewInvalidSyncIntervalError(hours, config.MinSyncIntervalHours, config.MaxSyncIntervalHours)
		},
	}
	h := NewSettingsHandler(svc, nil)

	w := httptest.NewRecorder()
	h.PutSyncInterval(w, newJSONRequest(http.MethodPut, "/api/settings/sync-interval", `{"hours":0}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := decodeError(t, w); body.Code != model.ErrCodeInvalidSyncInterval {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidSyncInterval)
	}
}
