package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/lead-webhooks/internal/entity"
)

func TestCaptureLeadSuccess(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(l *entity.Lead) bool {
		return l.EmailAddr == "new@b.com" && l.Status == entity.StatusEmailNotSent && l.ID != ""
	})).Return(nil)

	h := NewLeadHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lead", strings.NewReader(`{"email":"new@b.com"}`))
	w := httptest.NewRecorder()
	h.CaptureLead(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["id"])
}

func TestCaptureLeadRequiresEmail(t *testing.T) {
	h := NewLeadHandler(new(MockLeadRepository))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lead", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.CaptureLead(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptureLeadInvalidJSON(t *testing.T) {
	h := NewLeadHandler(new(MockLeadRepository))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/lead", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	h.CaptureLead(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptureLeadRateLimited(t *testing.T) {
	repo := new(MockLeadRepository)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	h := NewLeadHandler(repo)

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/lead", strings.NewReader(`{"email":"new@b.com"}`))
		req.Header.Set("X-Real-IP", "203.0.113.9")
		last = httptest.NewRecorder()
		h.CaptureLead(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}
