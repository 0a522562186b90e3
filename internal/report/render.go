// Package report renders the complaint summary and delivers it by email.
package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
)

// Subject line of the delivered report.
const Subject = "Your Police Complaint Summary Report"

const reportTemplate = `
<div style="font-family: Arial, sans-serif; color: #333; line-height: 1.6;">
    <div style="max-width: 600px; margin: 20px auto; padding: 20px; border: 1px solid #ddd; border-radius: 10px;">
        <h1 style="font-size: 24px; color: #003366; border-bottom: 2px solid #FCBA19; padding-bottom: 10px;">Police Complaint Summary Report</h1>
        <p>Generated on: {{.GeneratedAt}}</p>

        <h2 style="font-size: 18px; color: #003366; margin-top: 20px;">Complaint Details</h2>
        {{range .Fields}}<div style="margin-bottom: 12px;">
            <p style="margin: 0; color: #555; font-size: 14px; font-weight: bold;">{{.Label}}</p>
            <div style="margin: 4px 0 0 0; padding: 10px; background-color: #f2f2f2; border-radius: 5px;">{{.Value}}</div>
        </div>
        {{end}}
        {{range .Sections}}<h2 style="font-size: 18px; color: #003366; margin-top: 20px;">{{.Label}}</h2>
        <div style="padding: 10px; background-color: #f2f2f2; border-radius: 5px;">{{.Value}}</div>
        {{end}}
        <hr style="margin-top: 20px; border: none; border-top: 1px solid #ddd;" />

        <h2 style="font-size: 18px; color: #003366; margin-top: 20px;">Next Steps &amp; Contact Information</h2>
        <p>Thank you for using the AI Agent pilot to file your complaint. Please note that this is a copy for your records.</p>
        <p>For any questions regarding your complaint or the process, please contact the Office of the Police Complaint Commissioner (OPCC) directly:</p>
        <ul>
            <li><strong>Website:</strong> www.opcc.bc.ca</li>
            <li><strong>Phone:</strong> (250) 356-7458</li>
            <li><strong>Toll-Free:</strong> 1-877-999-8707</li>
        </ul>
    </div>
</div>
`

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

type entry struct {
	Label string
	Value template.HTML
}

type reportData struct {
	GeneratedAt string
	Fields      []entry
	Sections    []entry
}

const notSpecified = template.HTML("<em>Not specified</em>")

// textValue escapes a free-text value and preserves line breaks.
func textValue(s string) template.HTML {
	if s == "" {
		return notSpecified
	}
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func boolValue(b *bool) template.HTML {
	switch {
	case b == nil:
		return notSpecified
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

func listValue(items []string) template.HTML {
	if len(items) == 0 {
		return "None"
	}
	var sb strings.Builder
	sb.WriteString("<ul>")
	for _, item := range items {
		sb.WriteString("<li>")
		sb.WriteString(template.HTMLEscapeString(item))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
	return template.HTML(sb.String())
}

// Render produces the HTML summary report for a record snapshot.
func Render(rec *complaint.Record, now time.Time) (string, error) {
	data := reportData{
		GeneratedAt: now.Format("1/2/2006, 3:04:05 PM"),
		Fields: []entry{
			{"Complainant Name", textValue(rec.ComplainantName)},
			{"Email Address", textValue(rec.EmailAddress)},
			{"Date of Incident", textValue(rec.IncidentDate)},
			{"Time of Incident", textValue(rec.IncidentTime)},
			{"Location of Incident", textValue(rec.IncidentLocation)},
			{"Police Department", textValue(rec.PoliceDepartment)},
			{"Involved Officer(s)", textValue(rec.InvolvedOfficers)},
			{"Witnesses", textValue(rec.Witnesses)},
			{"Has Evidence", boolValue(rec.HasEvidence)},
			{"Uploaded Evidence Files", listValue(rec.EvidenceFiles)},
		},
		Sections: []entry{
			{"Description of Incident", textValue(rec.IncidentDescription)},
			{"Allegation", textValue(rec.Allegation)},
			{"Desired Outcome", textValue(rec.DesiredOutcome)},
		},
	}

	var sb strings.Builder
	if err := reportTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return sb.String(), nil
}
