package complaint

import (
	"encoding/json"
	"testing"
)

func TestApplyPatch_Merge(t *testing.T) {
	r := New()
	r.ApplyPatch(map[string]any{
		"complainantName": "Alex Chen",
		"incidentDate":    "2025-06-21",
	})
	r.ApplyPatch(map[string]any{
		"incidentDate":     "2025-06-22",
		"incidentLocation": "Main St and 12th Ave",
	})

	if r.ComplainantName != "Alex Chen" {
		t.Errorf("complainantName = %q", r.ComplainantName)
	}
	if r.IncidentDate != "2025-06-22" {
		t.Errorf("incidentDate = %q, want last write", r.IncidentDate)
	}
	if r.IncidentLocation != "Main St and 12th Ave" {
		t.Errorf("incidentLocation = %q", r.IncidentLocation)
	}
}

func TestApplyPatch_Coercion(t *testing.T) {
	r := New()
	r.ApplyPatch(map[string]any{
		"incidentTime": 1430,           // number where string expected
		"hasEvidence":  "true",         // string where bool expected
		"witnesses":    nil,            // explicit null ignored
		"badgeNumber":  "unknown key",  // ignored
		"evidenceFiles": []any{"x.png"}, // system-managed, never patchable
	})

	if r.IncidentTime != "1430" {
		t.Errorf("incidentTime = %q, want coerced string", r.IncidentTime)
	}
	if r.HasEvidence == nil || !*r.HasEvidence {
		t.Error("hasEvidence should coerce \"true\"")
	}
	if r.Witnesses != "" {
		t.Errorf("witnesses = %q, null should be ignored", r.Witnesses)
	}
	if len(r.EvidenceFiles) != 0 {
		t.Error("evidenceFiles must not be patchable")
	}
}

func TestApplyPatch_BoolGarbageIgnored(t *testing.T) {
	r := New()
	r.ApplyPatch(map[string]any{"hasEvidence": "maybe"})
	if r.HasEvidence != nil {
		t.Error("unparseable bool should leave hasEvidence unset")
	}

	f := false
	r.HasEvidence = &f
	r.ApplyPatch(map[string]any{"hasEvidence": true})
	if r.HasEvidence == nil || !*r.HasEvidence {
		t.Error("bool true should overwrite false")
	}
}

func TestAddEvidenceFile(t *testing.T) {
	r := New()
	r.AddEvidenceFile("photo.jpg")
	r.AddEvidenceFile("clip.mp4")

	if len(r.EvidenceFiles) != 2 || r.EvidenceFiles[0] != "photo.jpg" {
		t.Errorf("evidenceFiles = %v", r.EvidenceFiles)
	}
	if r.HasEvidence == nil || !*r.HasEvidence {
		t.Error("upload must force hasEvidence true")
	}
}

func TestIsEmpty(t *testing.T) {
	r := New()
	if !r.IsEmpty() {
		t.Error("fresh record should be empty")
	}

	r.ApplyPatch(map[string]any{"allegation": "excessive force"})
	if r.IsEmpty() {
		t.Error("patched record should not be empty")
	}

	r2 := New()
	f := false
	r2.HasEvidence = &f
	if r2.IsEmpty() {
		t.Error("answered hasEvidence counts as content even when false")
	}
}

func TestClone_Independent(t *testing.T) {
	r := New()
	r.AddEvidenceFile("photo.jpg")
	cp := r.Clone()

	cp.AddEvidenceFile("extra.png")
	*cp.HasEvidence = false

	if len(r.EvidenceFiles) != 1 {
		t.Error("clone shares evidenceFiles backing array")
	}
	if !*r.HasEvidence {
		t.Error("clone shares hasEvidence pointer")
	}
}

func TestRecordJSON_Keys(t *testing.T) {
	r := New()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"complainantName", "hasEvidence", "evidenceFiles", "emailAddress"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if m["hasEvidence"] != nil {
		t.Errorf("hasEvidence should serialize as null when unset, got %v", m["hasEvidence"])
	}
	if files, ok := m["evidenceFiles"].([]any); !ok || len(files) != 0 {
		t.Errorf("evidenceFiles should serialize as [], got %v", m["evidenceFiles"])
	}
}
