package storagepath

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageSuffix(t *testing.T) {
	tests := []struct {
		jobType   string
		condition string
		qcStep    int
		want      string
	}{
		{"general", "fresh", 0, StageRaw},
		{"general", "incomplete", 0, StageProductionPartial},
		{"test", "fresh", 0, StageRaw},
		{"test", "incomplete", 0, StageProductionPartial},
		{"qc", "fresh", 1, StageProductionDone},
		{"qc", "incomplete", 1, StageQC1Partial},
		{"qc", "fresh", 2, StageQC1Done},
		{"qc", "incomplete", 2, StageQC2Partial},
		{"correction", "fresh", 0, StageFeedback},
		{"correction", "incomplete", 0, StageFeedbackPartial},
		{"mystery", "fresh", 0, StageRaw},
		{"mystery", "incomplete", 0, StageProductionPartial},
		{"qc", "incomplete", 7, StageProductionPartial},
		{" QC ", "Incomplete", 2, StageQC2Partial},
	}

	for _, tt := range tests {
		t.Run(tt.jobType+"/"+tt.condition, func(t *testing.T) {
			assert.Equal(t, tt.want, StageSuffix(tt.jobType, tt.condition, tt.qcStep))
		})
	}
}

func TestStageSuffixIsPure(t *testing.T) {
	first := StageSuffix("qc", "incomplete", 2)
	StageSuffix("general", "fresh", 0)
	StageSuffix("correction", "incomplete", 0)
	assert.Equal(t, first, StageSuffix("qc", "incomplete", 2))
	assert.Equal(t, "QC/QC2/PARTIALLY DONE", first)
	assert.Equal(t, "RAW", StageSuffix("general", "fresh", 0))
}

func TestDoneSuffix(t *testing.T) {
	assert.Equal(t, StageProductionDone, DoneSuffix("general", 0))
	assert.Equal(t, StageProductionDone, DoneSuffix("test", 0))
	assert.Equal(t, StageProductionDone, DoneSuffix("qc", 1))
	assert.Equal(t, StageQC1Done, DoneSuffix("qc", 2))
	assert.Equal(t, StageFeedbackDone, DoneSuffix("correction", 0))
	assert.Equal(t, StageProductionDone, DoneSuffix("unknown", 0))
}

func TestSanitizeSegment(t *testing.T) {
	assert.Equal(t, "Alice", SanitizeSegment("Alice"))
	assert.Equal(t, "Alice", SanitizeSegment("  Alice  "))
	assert.Equal(t, "Team_Alice", SanitizeSegment(`Team//\Alice`))
	assert.Equal(t, "a_b_c", SanitizeSegment("a/b\\c"))
	assert.Equal(t, "employee", SanitizeSegment(""))
	assert.Equal(t, "employee", SanitizeSegment("   \t"))
	assert.Equal(t, "employee", SanitizeSegment("."))
	assert.Equal(t, "employee", SanitizeSegment(".."))
	assert.Equal(t, "employee", SanitizeSegment(" ... "))
	assert.Equal(t, "_..", SanitizeSegment("/.."))
	assert.Equal(t, "J.R.", SanitizeSegment("J.R."))
}

func TestEmployeeFolderStaysUnderStage(t *testing.T) {
	const base = "/Production/ClientX/Job1"
	stage := Join(base, StageProductionPartial)
	for _, name := range []string{"..", ".", "../..", `..\..`} {
		got := EmployeeFolder(base, StageProductionPartial, name)
		assert.Equal(t, stage, path.Dir(got), "employee %q", name)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/Production/ClientX/Job1/RAW", Join("/Production/ClientX/Job1", "RAW"))
	assert.Equal(t, "/Production/ClientX/Job1/PRODUCTION/PARTIALLY DONE/Alice",
		EmployeeFolder("/Production/ClientX/Job1", StageProductionPartial, "Alice"))
	assert.Equal(t, "/a/b", Join(`a\b`, ""))
	assert.Equal(t, "/", Join())
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"Production", "ClientX", "PRODUCTION", "DONE"}, Segments("/Production/ClientX/PRODUCTION/DONE"))
	assert.Empty(t, Segments("/"))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidJobType("General"))
	assert.True(t, ValidJobType("correction"))
	assert.False(t, ValidJobType("retouch"))
	assert.True(t, ValidCondition("fresh"))
	assert.True(t, ValidCondition("INCOMPLETE"))
	assert.False(t, ValidCondition("stale"))
}
