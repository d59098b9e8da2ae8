package validator

import (
	"sort"

	"github.com/datascry/scry/internal/model"
)

// IssueFile is one affected file inside an IssueGroup.
type IssueFile struct {
	File     string `json:"file"`
	Line     int    `json:"line,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// IssueGroup bundles all issues sharing a code: one human headline, an
// optional fix hint and doc link, and the sorted list of affected files.
type IssueGroup struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	FixHint string      `json:"fix_hint,omitempty"`
	DocURL  string      `json:"doc_url,omitempty"`
	Files   []IssueFile `json:"files"`
}

// Summary is the report's aggregate counters.
type Summary struct {
	TotalFiles      int    `json:"total_files"`
	TotalErrors     int    `json:"total_errors"`
	TotalWarnings   int    `json:"total_warnings"`
	RegistryVersion string `json:"registry_version"`
	Partial         bool   `json:"partial,omitempty"`
}

// Formatted is the grouped view of a report.
type Formatted struct {
	Errors   []IssueGroup `json:"errors"`
	Warnings []IssueGroup `json:"warnings"`
}

// Report is the complete outcome of one validation run. A caller always
// receives a Report; severity governs downstream gating.
type Report struct {
	Errors    []model.Issue `json:"errors"`
	Warnings  []model.Issue `json:"warnings"`
	Infos     []model.Issue `json:"infos,omitempty"`
	Formatted Formatted     `json:"formatted"`
	Summary   Summary       `json:"summary"`
}

// Valid reports whether the run produced no errors.
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// MarshalCanonical serializes the report as canonical JSON. Identical
// datasets yield byte-identical output.
func (r *Report) MarshalCanonical() ([]byte, error) {
	return model.MarshalCanonical(r)
}

// buildReport assembles the final Report from accumulated issues:
// severity split, deterministic sort, and code grouping.
func buildReport(issues []model.Issue, totalFiles int, registryVersion string, partial bool) *Report {
	sortIssues(issues)

	r := &Report{
		Errors:   []model.Issue{},
		Warnings: []model.Issue{},
		Summary: Summary{
			TotalFiles:      totalFiles,
			RegistryVersion: registryVersion,
			Partial:         partial,
		},
	}

	for _, issue := range issues {
		switch issue.Severity {
		case model.SeverityWarning:
			r.Warnings = append(r.Warnings, issue)
		case model.SeverityInfo:
			r.Infos = append(r.Infos, issue)
		default:
			r.Errors = append(r.Errors, issue)
		}
	}

	r.Summary.TotalErrors = len(r.Errors)
	r.Summary.TotalWarnings = len(r.Warnings)
	r.Formatted.Errors = groupIssues(r.Errors)
	r.Formatted.Warnings = groupIssues(r.Warnings)
	return r
}

// sortIssues orders issues by code, then file path, then line, for
// deterministic output regardless of traversal details.
func sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

// groupIssues bundles same-code issues into IssueGroups. The input must
// already be sorted by sortIssues.
func groupIssues(issues []model.Issue) []IssueGroup {
	groups := []IssueGroup{}
	for _, issue := range issues {
		if len(groups) == 0 || groups[len(groups)-1].Code != issue.Code {
			info := codeTable[issue.Code]
			groups = append(groups, IssueGroup{
				Code:    issue.Code,
				Message: info.Title,
				FixHint: info.FixHint,
				DocURL:  info.DocURL,
				Files:   []IssueFile{},
			})
		}
		g := &groups[len(groups)-1]
		g.Files = append(g.Files, IssueFile{
			File:     issue.File,
			Line:     issue.Line,
			Evidence: issue.Evidence,
		})
	}
	return groups
}
