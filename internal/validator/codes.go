package validator

import "github.com/datascry/scry/internal/model"

// codeInfo carries the reporting metadata for one issue code: the group
// headline, an optional fix hint, and an optional documentation link.
type codeInfo struct {
	Severity model.Severity
	Title    string
	FixHint  string
	DocURL   string
}

const docBase = "https://datascry.github.io/scry/rules/"

// codeTable maps every issue code the engine can emit to its reporting
// metadata. Codes absent from this table would render without a headline,
// so additions to the taxonomy must be registered here.
var codeTable = map[string]codeInfo{
	model.CodeMissingRootFile: {
		Severity: model.SeverityError,
		Title:    "Required dataset root file is missing",
		FixHint:  "Create the file at the dataset root; validation cannot proceed without it.",
		DocURL:   docBase + "E100",
	},
	model.CodeUnreadablePath: {
		Severity: model.SeverityError,
		Title:    "File exists but could not be read or parsed",
		DocURL:   docBase + "E101",
	},
	model.CodeUnknownParticipant: {
		Severity: model.SeverityError,
		Title:    "Data file references a participant missing from participants.tsv",
		FixHint:  "Add a row for the participant to participants.tsv.",
		DocURL:   docBase + "E102",
	},
	model.CodeMissingSidecar: {
		Severity: model.SeverityError,
		Title:    "No sidecar could be resolved for a data file",
		FixHint:  "Add a task-level sidecar at the dataset root or a file-specific sidecar next to the data file.",
		DocURL:   docBase + "E103",
	},
	model.CodeMissingEntity: {
		Severity: model.SeverityError,
		Title:    "Filename is missing a required entity",
		FixHint:  "Filenames follow sub-<label>[_ses-<label>]_task-<label>_<suffix>.<ext>.",
		DocURL:   docBase + "E110",
	},
	model.CodeMalformedEntity: {
		Severity: model.SeverityError,
		Title:    "Filename entity violates the naming grammar",
		FixHint:  "Entity labels are alphanumeric with no separators.",
		DocURL:   docBase + "E111",
	},
	model.CodeUnknownSuffix: {
		Severity: model.SeverityError,
		Title:    "Category suffix is not recognized",
		DocURL:   docBase + "E112",
	},
	model.CodeMissingRequiredField: {
		Severity: model.SeverityError,
		Title:    "Required sidecar field is missing",
		DocURL:   docBase + "E120",
	},
	model.CodeLevelNotAllowed: {
		Severity: model.SeverityError,
		Title:    "Levels key is outside the item's allowed-value set",
		FixHint:  "Every Levels key must be a member of AllowedValues when both are present.",
		DocURL:   docBase + "E121",
	},
	model.CodeMissingRecommendedField: {
		Severity: model.SeverityInfo,
		Title:    "Recommended sidecar field is missing",
		DocURL:   docBase + "E122",
	},
	model.CodeInvalidDatatype: {
		Severity: model.SeverityError,
		Title:    "Declared item datatype is not in the vocabulary",
		DocURL:   docBase + "E123",
	},
	model.CodeTypeMismatch: {
		Severity: model.SeverityError,
		Title:    "Value does not parse as the declared datatype",
		DocURL:   docBase + "E130",
	},
	model.CodeValueNotAllowed: {
		Severity: model.SeverityError,
		Title:    "Value is outside the allowed-value set",
		DocURL:   docBase + "E131",
	},
	model.CodeHardBound: {
		Severity: model.SeverityError,
		Title:    "Value violates a hard bound",
		DocURL:   docBase + "E132",
	},
	model.CodeSoftBound: {
		Severity: model.SeverityWarning,
		Title:    "Value violates a soft bound",
		DocURL:   docBase + "E140",
	},
	model.CodeExtraObservations: {
		Severity: model.SeverityWarning,
		Title:    "Data file has more observation rows than its category allows",
		FixHint:  "Single-observation categories score only the first row; split repeated administrations into separate session files.",
		DocURL:   docBase + "E141",
	},
	model.CodeRecipeMissingItem: {
		Severity: model.SeverityError,
		Title:    "Recipe references an item with no matching column",
		FixHint:  "The score is skipped; the rest of the recipe still runs.",
		DocURL:   docBase + "E150",
	},
	model.CodeMatchAmbiguous: {
		Severity: model.SeverityInfo,
		Title:    "Multiple templates matched at equal confidence",
		FixHint:  "The first template in library order was chosen; review the tie.",
		DocURL:   docBase + "E160",
	},
	model.CodeLanguageFallback: {
		Severity: model.SeverityInfo,
		Title:    "Target language unavailable, fell back to another language",
		DocURL:   docBase + "E161",
	},
}

// severityOf returns the registered severity for a code, defaulting to
// error for unregistered codes.
func severityOf(code string) model.Severity {
	if info, ok := codeTable[code]; ok {
		return info.Severity
	}
	return model.SeverityError
}
