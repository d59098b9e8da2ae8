package validator

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/datascry/scry/internal/dataset"
	"github.com/datascry/scry/internal/model"
	"github.com/datascry/scry/internal/schema"
)

// engine accumulates issues during one validation run.
type engine struct {
	ds     *dataset.Dataset
	reg    *schema.Registry
	issues []model.Issue
}

// Validate walks a loaded dataset and evaluates every registry rule,
// returning a complete Report. It never returns an error for a data
// defect: I/O failures become structural issues naming the path, and the
// single fatal case (a required root file is missing) surfaces as one
// top-level issue with per-file traversal skipped.
func Validate(ctx context.Context, ds *dataset.Dataset, reg *schema.Registry) *Report {
	e := &engine{ds: ds, reg: reg}

	// Dataset-level required files first. Absence is fatal: one issue,
	// no traversal.
	if len(ds.RootMissing) > 0 {
		e.add(model.Issue{
			Code:     model.CodeMissingRootFile,
			Message:  fmt.Sprintf("required root file %s is missing", ds.RootMissing[0]),
			File:     ds.RootMissing[0],
			Evidence: strings.Join(ds.RootMissing, ", "),
		})
		return buildReport(e.issues, 0, reg.Version, false)
	}

	e.checkDescription()
	e.checkParticipantsTable()
	e.checkParticipantCoverage()

	partial := false
	for _, id := range e.ds.ParticipantIDs() {
		if ctx.Err() != nil {
			partial = true
			break
		}
		for _, f := range e.ds.FilesFor(id) {
			e.checkFile(f)
		}
	}

	// Files whose sub entity never parsed belong to no participant but
	// still get their naming issues reported.
	for _, f := range e.ds.Files {
		if f.Entities.Sub == "" {
			e.checkFile(f)
		}
	}

	return buildReport(e.issues, len(e.ds.Files), reg.Version, partial)
}

func (e *engine) add(issue model.Issue) {
	if issue.Severity == "" {
		issue.Severity = severityOf(issue.Code)
	}
	e.issues = append(e.issues, issue)
}

// checkDescription validates dataset_description.json.
func (e *engine) checkDescription() {
	if e.ds.DescriptionErr != nil {
		e.add(model.Issue{
			Code:    model.CodeUnreadablePath,
			Message: e.ds.DescriptionErr.Error(),
			File:    "dataset_description.json",
		})
		return
	}
	for _, field := range e.reg.DescriptionRequired {
		if _, ok := e.ds.Description.Fields[field]; !ok {
			e.add(model.Issue{
				Code:     model.CodeMissingRequiredField,
				Message:  fmt.Sprintf("dataset description is missing required field %q", field),
				File:     "dataset_description.json",
				Evidence: field,
			})
		}
	}
}

// checkParticipantsTable validates participants.tsv structure and
// identifier grammar.
func (e *engine) checkParticipantsTable() {
	if e.ds.ParticipantsErr != nil {
		e.add(model.Issue{
			Code:    model.CodeUnreadablePath,
			Message: e.ds.ParticipantsErr.Error(),
			File:    "participants.tsv",
		})
		return
	}
	for i, p := range e.ds.Participants {
		if !e.reg.ValidParticipantID(p.ID) {
			e.add(model.Issue{
				Code:     model.CodeMalformedEntity,
				Message:  fmt.Sprintf("participant identifier %q violates the grammar", p.ID),
				File:     "participants.tsv",
				Line:     i + 2, // header is line 1
				Evidence: p.ID,
			})
		}
	}
}

// checkParticipantCoverage enforces the invariant that every participant
// referenced by a data file appears in the participants table.
func (e *engine) checkParticipantCoverage() {
	if e.ds.ParticipantsErr != nil {
		return // table unreadable, already reported
	}
	for _, id := range e.ds.ParticipantIDs() {
		if !e.ds.HasParticipant(id) {
			files := e.ds.FilesFor(id)
			evidence := ""
			if len(files) > 0 {
				evidence = files[0].Path
			}
			e.add(model.Issue{
				Code:     model.CodeUnknownParticipant,
				Message:  fmt.Sprintf("participant %s has data files but no participants.tsv row", id),
				File:     "participants.tsv",
				Evidence: evidence,
			})
		}
	}
}

// checkFile runs the per-file pipeline: naming grammar, sidecar
// resolution, required fields, and the per-item value scan.
func (e *engine) checkFile(f *dataset.DataFile) {
	if f.NameErr != nil {
		e.add(model.Issue{
			Code:     f.NameErr.Code,
			Message:  f.NameErr.Message,
			File:     f.Path,
			Evidence: f.Name,
		})
		return
	}

	cat, ok := e.reg.LookupCategory(f.Entities.Suffix)
	if !ok {
		e.add(model.Issue{
			Code:     model.CodeUnknownSuffix,
			Message:  fmt.Sprintf("unknown category suffix %q (known: %s)", f.Entities.Suffix, strings.Join(e.reg.CategorySuffixes(), ", ")),
			File:     f.Path,
			Evidence: f.Entities.Suffix,
		})
		return
	}
	if !cat.ValidExtension(path.Ext(f.Path)) {
		e.add(model.Issue{
			Code:     model.CodeMalformedEntity,
			Message:  fmt.Sprintf("extension %q is not valid for category %q", path.Ext(f.Path), f.Entities.Suffix),
			File:     f.Path,
			Evidence: path.Ext(f.Path),
		})
	}

	res := e.ds.ResolveSidecar(f)
	if res.Err != nil {
		e.add(model.Issue{
			Code:    model.CodeUnreadablePath,
			Message: res.Err.Error(),
			File:    res.ErrPath,
		})
	}
	if res.Sidecar == nil {
		if cat.SidecarRequired {
			e.add(model.Issue{
				Code:    model.CodeMissingSidecar,
				Message: fmt.Sprintf("no sidecar resolved for %s", f.Path),
				File:    f.Path,
			})
		}
		return
	}

	e.checkRequiredFields(f, cat, res.Sidecar)
	e.checkItems(f, res.Sidecar)
	e.scanValues(f, cat, res.Sidecar)
}

// checkRequiredFields enforces per-section presence rules. Presence is
// uniform over both text variants: a field counts as present whether it is
// a plain string or a language map.
func (e *engine) checkRequiredFields(f *dataset.DataFile, cat schema.Category, sc *model.Sidecar) {
	sections := make([]string, 0, len(cat.Sections))
	for name := range cat.Sections {
		sections = append(sections, name)
	}
	sort.Strings(sections)

	for _, name := range sections {
		rules := cat.Sections[name]
		section := sc.Sections[name]
		for _, field := range rules.Required {
			if _, ok := section[field]; !ok {
				e.add(model.Issue{
					Code:     model.CodeMissingRequiredField,
					Message:  fmt.Sprintf("section %q is missing required field %q", name, field),
					File:     f.Path,
					Evidence: name + "." + field,
				})
			}
		}
		for _, field := range rules.Recommended {
			if _, ok := section[field]; !ok {
				e.add(model.Issue{
					Code:     model.CodeMissingRecommendedField,
					Message:  fmt.Sprintf("section %q is missing recommended field %q", name, field),
					File:     f.Path,
					Evidence: name + "." + field,
				})
			}
		}
	}
}

// checkItems validates item definitions themselves: datatype vocabulary
// and the Levels/AllowedValues consistency invariant.
func (e *engine) checkItems(f *dataset.DataFile, sc *model.Sidecar) {
	for _, code := range sc.ItemCodes() {
		item := sc.Items[code]

		if !e.reg.ValidDatatype(item.DataType) {
			e.add(model.Issue{
				Code:     model.CodeInvalidDatatype,
				Message:  fmt.Sprintf("item %q declares unknown datatype %q", code, item.DataType),
				File:     f.Path,
				Evidence: code,
			})
		}

		if len(item.Levels) == 0 || len(item.AllowedValues) == 0 {
			continue
		}
		for _, key := range item.Levels.SortedKeys() {
			if !item.Allowed(key) {
				e.add(model.Issue{
					Code:     model.CodeLevelNotAllowed,
					Message:  fmt.Sprintf("item %q declares level %q outside its allowed values", code, key),
					File:     f.Path,
					Evidence: code + "=" + key,
				})
			}
		}
	}
}

// scanValues checks every observed cell of each declared item against the
// item's constraints, and flags extra rows in single-observation files.
func (e *engine) scanValues(f *dataset.DataFile, cat schema.Category, sc *model.Sidecar) {
	table, err := e.ds.ReadTable(f.Path)
	if err != nil {
		e.add(model.Issue{
			Code:    model.CodeUnreadablePath,
			Message: err.Error(),
			File:    f.Path,
		})
		return
	}

	if cat.SingleObservation && len(table.Rows) > 1 {
		e.add(model.Issue{
			Code:     model.CodeExtraObservations,
			Message:  fmt.Sprintf("expected a single observation row, found %d; scoring uses only the first", len(table.Rows)),
			File:     f.Path,
			Line:     3, // first extra row
			Evidence: fmt.Sprintf("%d rows", len(table.Rows)),
		})
	}

	for _, code := range sc.ItemCodes() {
		item := sc.Items[code]
		if table.ColumnIndex(code) < 0 {
			continue // item not observed in this file
		}
		for row := range table.Rows {
			value, present := table.Cell(row, code)
			if !present {
				continue
			}
			e.checkValue(f, table, row, code, item, value)
		}
	}
}

// checkValue applies type, membership, and bound checks to a single cell.
func (e *engine) checkValue(f *dataset.DataFile, table *dataset.Table, row int, code string, item model.Item, value string) {
	line := row + 2 // header is line 1

	num, numOK, typeOK := parseTyped(item.DataType, value)
	if !typeOK {
		e.add(model.Issue{
			Code:     model.CodeTypeMismatch,
			Message:  fmt.Sprintf("item %q value %q is not a valid %s", code, value, item.DataType),
			File:     f.Path,
			Line:     line,
			Evidence: code + "=" + value,
		})
		return
	}

	allowed := item.AllowedValues
	if len(allowed) == 0 && len(item.Levels) > 0 {
		allowed = item.Levels.SortedKeys()
	}
	if len(allowed) > 0 {
		member := false
		for _, v := range allowed {
			if v == value {
				member = true
				break
			}
		}
		if !member {
			e.add(model.Issue{
				Code:     model.CodeValueNotAllowed,
				Message:  fmt.Sprintf("item %q value %q is not in its allowed-value set", code, value),
				File:     f.Path,
				Line:     line,
				Evidence: code + "=" + value,
			})
			return
		}
	}

	if !numOK {
		return // bounds apply to numeric values only
	}
	if item.MinValue != nil && num < *item.MinValue {
		e.add(model.Issue{
			Code:     model.CodeHardBound,
			Message:  fmt.Sprintf("item %q value %s is below the hard minimum %s", code, value, formatBound(*item.MinValue)),
			File:     f.Path,
			Line:     line,
			Evidence: code + "=" + value,
		})
	}
	if item.MaxValue != nil && num > *item.MaxValue {
		e.add(model.Issue{
			Code:     model.CodeHardBound,
			Message:  fmt.Sprintf("item %q value %s is above the hard maximum %s", code, value, formatBound(*item.MaxValue)),
			File:     f.Path,
			Line:     line,
			Evidence: code + "=" + value,
		})
	}
	if item.SoftMinValue != nil && num < *item.SoftMinValue {
		e.add(model.Issue{
			Code:     model.CodeSoftBound,
			Message:  fmt.Sprintf("item %q value %s is below the soft minimum %s", code, value, formatBound(*item.SoftMinValue)),
			File:     f.Path,
			Line:     line,
			Evidence: code + "=" + value,
		})
	}
	if item.SoftMaxValue != nil && num > *item.SoftMaxValue {
		e.add(model.Issue{
			Code:     model.CodeSoftBound,
			Message:  fmt.Sprintf("item %q value %s is above the soft maximum %s", code, value, formatBound(*item.SoftMaxValue)),
			File:     f.Path,
			Line:     line,
			Evidence: code + "=" + value,
		})
	}
}

// parseTyped parses a cell value under the declared datatype. isNum
// reports whether the value yielded a number bound checks can apply to;
// typeOK reports whether the value satisfies the declared type. Boolean and
// string items never yield a number; untyped items do when the value
// happens to parse.
func parseTyped(datatype, value string) (num float64, isNum, typeOK bool) {
	switch datatype {
	case model.TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, false, false
		}
		return float64(n), true, true
	case model.TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false, false
		}
		return n, true, true
	case model.TypeBoolean:
		_, err := strconv.ParseBool(value)
		return 0, false, err == nil
	case model.TypeString:
		return 0, false, true
	case "":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false, true
		}
		return n, true, true
	default:
		// Unknown datatype is already reported as its own issue; don't
		// cascade a type mismatch on every cell.
		return 0, false, true
	}
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
