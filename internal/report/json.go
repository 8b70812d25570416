package report

import (
	"encoding/json"
	"fmt"

	"github.com/kamilpajak/faultline/pkg/models"
)

type jsonReport struct {
	RunID    string                 `json:"run_id,omitempty"`
	Degraded bool                   `json:"degraded"`
	Style    Style                  `json:"style"`
	Context  jsonContext            `json:"context"`
	Result   *models.AnalysisResult `json:"result"`
}

type jsonContext struct {
	Pipeline             string         `json:"pipeline"`
	BuildNumber          string         `json:"build_number"`
	Step                 string         `json:"step"`
	Command              string         `json:"command"`
	ExitCode             int            `json:"exit_code"`
	ErrorCategory        string         `json:"error_category"`
	Redactions           int            `json:"redactions"`
	RedactionsByCategory map[string]int `json:"redactions_by_category,omitempty"`
}

func renderJSON(res *models.AnalysisResult, sc *models.SanitizedContext, opts Options) (string, error) {
	bounded := *res
	bounded.RootCause = truncate(res.RootCause, maxRootCause)
	bounded.SuggestedFixes = fixes(res)
	bounded.Error = truncate(res.Error, maxError)
	bounded.RawResponse = ""
	if opts.IncludeRaw {
		bounded.RawResponse = truncate(res.RawResponse, maxRawExcerpt)
	}

	out := jsonReport{
		RunID:    opts.RunID,
		Degraded: res.Degraded(),
		Style:    StyleFor(res, opts.Style),
		Context: jsonContext{
			Pipeline:             truncate(sc.Build.Pipeline, maxField),
			BuildNumber:          truncate(sc.Build.BuildNumber, maxField),
			Step:                 truncate(sc.Build.Step, maxField),
			Command:              truncate(sc.Command, maxField),
			ExitCode:             sc.ExitCode,
			ErrorCategory:        sc.ErrorCategory,
			Redactions:           sc.Redactions,
			RedactionsByCategory: sc.RedactionsByCategory,
		},
		Result: &bounded,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data) + "\n", nil
}
