// Package complaint holds the structured record the interview populates.
package complaint

import (
	"fmt"
	"slices"
)

// Record is the complaint being assembled. All fields default to their zero
// value; HasEvidence is tri-state (nil until the question has been answered
// or a file has been uploaded). EvidenceFiles is append-only and managed by
// the system, never by the model.
type Record struct {
	ComplainantName     string   `json:"complainantName"`
	IncidentDate        string   `json:"incidentDate"`
	IncidentTime        string   `json:"incidentTime"`
	IncidentLocation    string   `json:"incidentLocation"`
	PoliceDepartment    string   `json:"policeDepartment"`
	InvolvedOfficers    string   `json:"involvedOfficers"`
	Witnesses           string   `json:"witnesses"`
	IncidentDescription string   `json:"incidentDescription"`
	HasEvidence         *bool    `json:"hasEvidence"`
	Allegation          string   `json:"allegation"`
	DesiredOutcome      string   `json:"desiredOutcome"`
	EvidenceFiles       []string `json:"evidenceFiles"`
	EmailAddress        string   `json:"emailAddress"`
}

// New returns an empty record.
func New() *Record {
	return &Record{EvidenceFiles: []string{}}
}

// ApplyPatch merges model-supplied fields into the record, last write wins.
// Unknown keys are ignored. Values arrive from a decoded JSON args map, so
// scalars are coerced defensively rather than trusted to be the right type.
// The evidenceFiles list cannot be patched.
func (r *Record) ApplyPatch(patch map[string]any) {
	for key, raw := range patch {
		switch key {
		case "complainantName":
			setString(&r.ComplainantName, raw)
		case "incidentDate":
			setString(&r.IncidentDate, raw)
		case "incidentTime":
			setString(&r.IncidentTime, raw)
		case "incidentLocation":
			setString(&r.IncidentLocation, raw)
		case "policeDepartment":
			setString(&r.PoliceDepartment, raw)
		case "involvedOfficers":
			setString(&r.InvolvedOfficers, raw)
		case "witnesses":
			setString(&r.Witnesses, raw)
		case "incidentDescription":
			setString(&r.IncidentDescription, raw)
		case "allegation":
			setString(&r.Allegation, raw)
		case "desiredOutcome":
			setString(&r.DesiredOutcome, raw)
		case "emailAddress":
			setString(&r.EmailAddress, raw)
		case "hasEvidence":
			if b, ok := asBool(raw); ok {
				r.HasEvidence = &b
			}
		}
	}
}

func setString(dst *string, raw any) {
	switch v := raw.(type) {
	case nil:
		// Ignore explicit nulls; the model clears nothing.
	case string:
		*dst = v
	default:
		*dst = fmt.Sprint(v)
	}
}

func asBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true", "True":
			return true, true
		case "false", "False":
			return false, true
		}
	}
	return false, false
}

// AddEvidenceFile records an uploaded file and marks evidence as present.
func (r *Record) AddEvidenceFile(name string) {
	r.EvidenceFiles = append(r.EvidenceFiles, name)
	t := true
	r.HasEvidence = &t
}

// IsEmpty reports whether every field is still at its default.
func (r *Record) IsEmpty() bool {
	return r.ComplainantName == "" &&
		r.IncidentDate == "" &&
		r.IncidentTime == "" &&
		r.IncidentLocation == "" &&
		r.PoliceDepartment == "" &&
		r.InvolvedOfficers == "" &&
		r.Witnesses == "" &&
		r.IncidentDescription == "" &&
		r.HasEvidence == nil &&
		r.Allegation == "" &&
		r.DesiredOutcome == "" &&
		len(r.EvidenceFiles) == 0 &&
		r.EmailAddress == ""
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	cp := *r
	cp.EvidenceFiles = slices.Clone(r.EvidenceFiles)
	if cp.EvidenceFiles == nil {
		cp.EvidenceFiles = []string{}
	}
	if r.HasEvidence != nil {
		b := *r.HasEvidence
		cp.HasEvidence = &b
	}
	return &cp
}
