package progressbus

import (
	"encoding/json"
	"testing"

	"github.com/leadgrid/leadgrid/jobrunner"
)

func TestEncodeJobUpdatePayloadOmitsNilError(t *testing.T) {
	payload := JobUpdatePayload{
		JobID:  "job-1",
		Status: "active",
		Progress: jobrunner.Progress{
			Percentage: 50,
		},
	}
	raw, err := encode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if _, ok := decoded["error"]; ok {
		t.Errorf("expected no error field when Error is nil, got %v", decoded["error"])
	}
	if decoded["jobId"] != "job-1" {
		t.Errorf("expected jobId to round-trip, got %v", decoded["jobId"])
	}
}

func TestEncodeJobUpdatePayloadIncludesError(t *testing.T) {
	payload := JobUpdatePayload{
		JobID:  "job-2",
		Status: "failed",
		Error:  &jobrunner.JobError{Message: "boom"},
	}
	raw, err := encode(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	errField, ok := decoded["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error field to be present, got %v", decoded["error"])
	}
	if errField["Message"] != "boom" {
		t.Errorf("expected error message to round-trip, got %v", errField["Message"])
	}
}

func TestEnvelopeEncodesTypeAndPayload(t *testing.T) {
	raw, err := encode(envelope{Type: UpdateJobDeleted, Payload: JobUpdatePayload{JobID: "job-3"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if decoded["type"] != string(UpdateJobDeleted) {
		t.Errorf("expected type %q, got %v", UpdateJobDeleted, decoded["type"])
	}
}
