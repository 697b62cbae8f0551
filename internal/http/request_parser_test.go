package http

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "valid payload",
			body: `{"name":"Kangoo","mode":"odometer"}`,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: "empty request body",
		},
		{
			name:    "unknown field",
			body:    `{"name":"Kangoo","color":"red"}`,
			wantErr: "invalid JSON body",
		},
		{
			name:    "trailing garbage",
			body:    `{"name":"Kangoo"}{"name":"again"}`,
			wantErr: "unexpected data after JSON body",
		},
		{
			name:    "not JSON",
			body:    "name=Kangoo",
			wantErr: "invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/vehicles", strings.NewReader(tt.body))
			var dst vehicleRequest
			err := decodeJSON(r, &dst)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("decodeJSON() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{name: "valid", value: "42", want: 42},
		{name: "zero", value: "0", wantErr: true},
		{name: "negative", value: "-3", wantErr: true},
		{name: "not a number", value: "abc", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/vehicles/x", nil)
			r.SetPathValue("id", tt.value)

			got, err := pathID(r, "id")
			if tt.wantErr {
				if err == nil {
					t.Errorf("pathID(%q) = %d, want error", tt.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("pathID(%q) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("pathID(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Kangoo  ", "Kangoo"},
		{"Kan\x00goo", "Kangoo"},
		{"12,5", "12,5"},
		{"line1\nline2", "line1\nline2"},
		{"\x07bell", "bell"},
	}

	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFillupRequestToRaw(t *testing.T) {
	req := fillupRequest{
		Date:       " 2025-06-01 ",
		FuelAmount: "40,5",
		TotalPrice: " 70 ",
		Odometer:   "12000",
	}
	raw := req.toRaw()
	if raw.Date != "2025-06-01" {
		t.Errorf("Date = %q", raw.Date)
	}
	if raw.FuelAmount != "40,5" {
		t.Errorf("FuelAmount = %q", raw.FuelAmount)
	}
	if raw.TotalPrice != "70" {
		t.Errorf("TotalPrice = %q", raw.TotalPrice)
	}
	if raw.Distance != "" {
		t.Errorf("Distance = %q, want empty", raw.Distance)
	}
}
