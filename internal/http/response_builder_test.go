package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tanklog/internal/core"
)

func TestResponseBuilderDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().JSON(map[string]string{"hello": "world"}).Write(rec)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("body = %v", body)
	}
}

func TestResponseBuilderStatusAndHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("X-Request-Id", "abc123").
		JSON(map[string]int{"id": 1}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "abc123" {
		t.Errorf("X-Request-Id = %q", got)
	}
}

func TestResponseBuilderNoPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(rec)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
		wantError  string
	}{
		{"bad request", BadRequestError("invalid id"), http.StatusBadRequest, "invalid id"},
		{"not found", NotFoundError("vehicle not found"), http.StatusNotFound, "vehicle not found"},
		{"unprocessable", UnprocessableEntityError("invalid mode"), http.StatusUnprocessableEntity, "invalid mode"},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.builder.Write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var payload errorPayload
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if payload.Error != tt.wantError {
				t.Errorf("error = %q, want %q", payload.Error, tt.wantError)
			}
			if len(payload.Fields) != 0 {
				t.Errorf("fields = %v, want none", payload.Fields)
			}
		})
	}
}

func TestRejectionResponseCarriesFieldErrors(t *testing.T) {
	rej := &core.Rejection{Fields: []core.FieldError{
		{Field: "date", Message: "invalid date format"},
		{Field: "fuel_amount", Message: "must be positive"},
	}}

	rec := httptest.NewRecorder()
	RejectionResponse(rej).Write(rec)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}

	var payload errorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error != "validation failed" {
		t.Errorf("error = %q", payload.Error)
	}
	if len(payload.Fields) != 2 || payload.Fields[0].Field != "date" {
		t.Errorf("fields = %v", payload.Fields)
	}
}
