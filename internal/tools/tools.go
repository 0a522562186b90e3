// Package tools defines the static tool registry offered to the model.
//
// The registry is fixed: exactly two declarations, sent with every model
// call. The interview cannot gain or lose tools at runtime; dispatch of the
// calls the model issues lives in the orchestrator.
package tools

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/opcc-pilot/complaint-intake/internal/llm"
)

// Tool names the model may invoke.
const (
	SaveComplaintDetails = "saveComplaintDetails"
	EmailComplaintReport = "emailComplaintReport"
)

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

// Declarations returns the tool registry. Each call returns a fresh slice so
// callers cannot mutate the schemas out from under each other.
func Declarations() []llm.Declaration {
	return []llm.Declaration{
		{
			Name:        SaveComplaintDetails,
			Description: "Saves or updates the details of the police complaint report. Call this function whenever you gather new information from the user.",
			Parameters: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"complainantName":  str("The user's full name. Ask if they want to remain anonymous."),
					"incidentDate":     str("The date of the incident. Accept common formats like 'YYYY-MM-DD', 'Month D, YYYY', 'MM/DD/YYYY', or relative terms like 'yesterday' or 'last Tuesday'. Normalize the final value to a YYYY-MM-DD format."),
					"incidentTime":     str("The time of the incident. Accept formats like 'HH:MM AM/PM', 'HH:MM' (24-hour), or descriptive times like 'around noon' or 'late afternoon'. Normalize to HH:MM AM/PM format."),
					"incidentLocation": str("The location where the incident occurred. Accept full street addresses, intersections (e.g., 'Main St and 12th Ave'), landmarks, or general descriptions. Extract the most specific location given by the user."),
					"policeDepartment": str("The municipal police department the complaint is about (e.g., Vancouver Police Department, Saanich Police)."),
					"involvedOfficers": str("Names or badge numbers of the officer(s) involved. Note if unknown."),
					"witnesses":        str("Names of any witnesses. Note if there were none or if they are unknown."),
					"incidentDescription": str("A detailed summary of what happened during the incident. If the user provided an image or video, describe what you see and add it to this summary."),
					"hasEvidence": {
						Type:        "boolean",
						Description: "Whether the user has any evidence like photos or videos. If the user uploads a file, set this to true.",
					},
					"allegation":     str("A summary of what the user believes the officer(s) did wrong. This is the specific misconduct being reported."),
					"desiredOutcome": str("What the user would like to see happen as a result of their complaint (e.g., an apology, an investigation, officer training)."),
					"emailAddress":   str("The user's email address, to which a copy of the final report will be sent."),
				},
			},
		},
		{
			Name:        EmailComplaintReport,
			Description: "Finalizes the process by emailing the completed complaint report to the user. Only call this function after you have gathered all necessary details and confirmed with the user that they are ready to complete the report.",
			Parameters: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"emailAddress": str("The user's email address where the report should be sent. You must have already confirmed this with the user."),
				},
				Required: []string{"emailAddress"},
			},
		},
	}
}
