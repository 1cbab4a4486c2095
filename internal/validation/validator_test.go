// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

package validation

import (
	"errors"
	"strings"
	"testing"
)

type finalizeRequest struct {
	ClassID   string   `json:"classId" validate:"required"`
	Present   []string `json:"presentStudents" validate:"dive,required"`
	SessionID string   `json:"sessionId" validate:"omitempty,sessionid"`
	Date      string   `json:"date" validate:"omitempty,day"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Role      string   `json:"role" validate:"omitempty,oneof=teacher student"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       finalizeRequest
		wantField string
		wantMsg   string
	}{
		{"valid", finalizeRequest{ClassID: "c1", Present: []string{"s1"}, SessionID: "abc-123", Date: "2026-03-02"}, "", ""},
		{"missing class", finalizeRequest{}, "classId", "classId is required"},
		{"bad session", finalizeRequest{ClassID: "c1", SessionID: "has space"}, "sessionId", "sessionId must be a session id"},
		{"bad day", finalizeRequest{ClassID: "c1", Date: "03/02/2026"}, "date", "date must be a date as YYYY-MM-DD"},
		{"bad email", finalizeRequest{ClassID: "c1", Email: "nope"}, "email", "email must be a valid email address"},
		{"bad role", finalizeRequest{ClassID: "c1", Role: "admin"}, "role", "role must be one of: teacher student"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %v, want *RequestValidationError", err)
			}
			if ve.Fields[0].Field != tt.wantField || ve.Fields[0].Message != tt.wantMsg {
				t.Errorf("got %+v, want %s: %s", ve.Fields[0], tt.wantField, tt.wantMsg)
			}
		})
	}
}

func TestValidateStructCollectsAllFields(t *testing.T) {
	err := ValidateStruct(&finalizeRequest{SessionID: "bad id", Date: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"classId is required", "sessionId", "date"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestGetValidatorIsSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("expected the same validator instance")
	}
}
