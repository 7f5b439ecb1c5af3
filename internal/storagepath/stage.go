// Package storagepath maps logical job state onto the NAS folder layout of an
// order. Everything here is pure: no I/O, no shared state.
package storagepath

import (
	"path"
	"strings"
)

// Job types
const (
	JobGeneral    = "general"
	JobTest       = "test"
	JobQC         = "qc"
	JobCorrection = "correction"
)

// Conditions
const (
	ConditionFresh      = "fresh"
	ConditionIncomplete = "incomplete"
)

// Stage folders under an order's base path
const (
	StageRaw               = "RAW"
	StageProductionPartial = "PRODUCTION/PARTIALLY DONE"
	StageProductionDone    = "PRODUCTION/DONE"
	StageQC1Partial        = "QC/QC1/PARTIALLY DONE"
	StageQC1Done           = "QC/QC1/DONE"
	StageQC2Partial        = "QC/QC2/PARTIALLY DONE"
	StageFeedback          = "FEEDBACK"
	StageFeedbackPartial   = "FEEDBACK/PARTIALLY DONE"
	StageFeedbackDone      = "FEEDBACK/DONE"
)

// fallbackEmployeeSegment is used when an employee name sanitizes to nothing
const fallbackEmployeeSegment = "employee"

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidJobType reports whether jobType is one of the known job types.
func ValidJobType(jobType string) bool {
	switch normalize(jobType) {
	case JobGeneral, JobTest, JobQC, JobCorrection:
		return true
	}
	return false
}

// ValidCondition reports whether condition is fresh or incomplete.
func ValidCondition(condition string) bool {
	switch normalize(condition) {
	case ConditionFresh, ConditionIncomplete:
		return true
	}
	return false
}

// StageSuffix returns the stage folder a job type reads from (fresh) or works
// in (incomplete). Unknown job types fall back to the production stages.
func StageSuffix(jobType, condition string, qcStep int) string {
	incomplete := normalize(condition) == ConditionIncomplete

	switch normalize(jobType) {
	case JobGeneral, JobTest:
		if incomplete {
			return StageProductionPartial
		}
		return StageRaw
	case JobQC:
		switch qcStep {
		case 1:
			if incomplete {
				return StageQC1Partial
			}
			return StageProductionDone
		case 2:
			if incomplete {
				return StageQC2Partial
			}
			return StageQC1Done
		}
	case JobCorrection:
		if incomplete {
			return StageFeedbackPartial
		}
		return StageFeedback
	}

	if incomplete {
		return StageProductionPartial
	}
	return StageRaw
}

// DoneSuffix returns the stage a finished file is moved to.
func DoneSuffix(jobType string, qcStep int) string {
	switch normalize(jobType) {
	case JobQC:
		if qcStep == 2 {
			return StageQC1Done
		}
		return StageProductionDone
	case JobCorrection:
		return StageFeedbackDone
	}
	return StageProductionDone
}

// SanitizeSegment turns an employee name into a single folder segment. Runs of
// path separators collapse to one underscore. Dot-only names ("." or "..")
// would resolve to a parent folder and get the fallback instead.
func SanitizeSegment(name string) string {
	var b strings.Builder
	inSep := false
	for _, r := range strings.TrimSpace(name) {
		if r == '/' || r == '\\' {
			if !inSep {
				b.WriteRune('_')
			}
			inSep = true
			continue
		}
		inSep = false
		b.WriteRune(r)
	}
	seg := strings.TrimSpace(b.String())
	if strings.Trim(seg, ".") == "" {
		return fallbackEmployeeSegment
	}
	return seg
}

// Join joins storage path elements with forward slashes.
func Join(elem ...string) string {
	cleaned := make([]string, 0, len(elem))
	for _, e := range elem {
		e = strings.ReplaceAll(e, `\`, "/")
		if strings.TrimSpace(e) != "" {
			cleaned = append(cleaned, e)
		}
	}
	if len(cleaned) == 0 {
		return "/"
	}
	joined := path.Join(cleaned...)
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

// EmployeeFolder is the per-employee working folder under a stage.
func EmployeeFolder(base, suffix, employee string) string {
	return Join(base, suffix, SanitizeSegment(employee))
}

// Segments splits a storage path into its folder names.
func Segments(p string) []string {
	var out []string
	for _, s := range strings.Split(Join(p), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
