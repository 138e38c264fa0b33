// Package report turns evaluation results into the finding records consumed
// by scan hosts.
package report

import (
	berrors "github.com/letsencrypt/evcheck/errors"
	"github.com/letsencrypt/evcheck/evaluator"
)

// Severity ranks a Finding.
type Severity string

const (
	Info   Severity = "Info"
	Low    Severity = "Low"
	Medium Severity = "Medium"
	High   Severity = "High"
)

// URLRef points at the resource a finding is about. Both fields are null
// when the finding concerns the whole target.
type URLRef struct {
	URL   *string `json:"URL"`
	Extra *string `json:"Extra"`
}

// Reference is a link to background reading.
type Reference struct {
	URL   string `json:"URL" yaml:"url" validate:"required,url"`
	Title string `json:"Title" yaml:"title" validate:"required"`
}

// Finding is one record of a scan report. A nil FurtherInfo serializes as
// null.
type Finding struct {
	Summary     string      `json:"Summary"`
	Description string      `json:"Description"`
	Severity    Severity    `json:"Severity"`
	URLs        []URLRef    `json:"URLs"`
	FurtherInfo []Reference `json:"FurtherInfo"`
}

// DefaultFurtherInfo is attached to EV and NotEV findings when nothing else
// is configured.
var DefaultFurtherInfo = []Reference{{
	URL:   "http://en.wikipedia.org/wiki/Extended_Validation_Certificate",
	Title: "Wikipedia - Extended Validation Certificate",
}}

const retryDescription = "Retry the test. If the problem persists, please contact the system administrator."

// FromResult returns the findings for res: an advisory when the target was
// not https, followed by exactly one primary finding. furtherInfo is
// attached to the EV and NotEV findings only.
func FromResult(res evaluator.Result, furtherInfo []Reference) []Finding {
	var findings []Finding
	if res.NonHTTPS {
		findings = append(findings, newFinding(
			"Non-HTTPS target supplied",
			"This plugin is designed to test SSL certificates and may not work properly on a HTTP -> HTTPS redirect.",
			Info, nil))
	}
	return append(findings, primary(res, furtherInfo))
}

func primary(res evaluator.Result, furtherInfo []Reference) Finding {
	switch res.Status {
	case evaluator.StatusEV:
		return newFinding(
			"Site uses an Extended Validation certificate",
			"The site uses an EV certificate",
			Info, furtherInfo)
	case evaluator.StatusNotEV:
		return newFinding(
			"Site does not use an Extended Validation certificate",
			"The site doesn't use an EV certificate.",
			High, furtherInfo)
	}

	switch berrors.TypeOf(res.Err) {
	case berrors.InvalidTarget:
		summary := "No hostname provided"
		if res.Reason == evaluator.ReasonInvalidPort {
			summary = "Invalid port provided"
		}
		return newFinding(summary, "There was an error parsing the scan target argument.", Info, nil)
	case berrors.Handshake:
		return newFinding("There was an error completing a SSL connection to the site", retryDescription, Info, nil)
	default:
		return newFinding("There was an unknown error connecting to the site", retryDescription, Info, nil)
	}
}

func newFinding(summary, description string, severity Severity, furtherInfo []Reference) Finding {
	return Finding{
		Summary:     summary,
		Description: description,
		Severity:    severity,
		URLs:        []URLRef{{}},
		FurtherInfo: furtherInfo,
	}
}
