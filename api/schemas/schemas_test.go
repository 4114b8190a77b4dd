package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaperType(t *testing.T) {
	cases := []struct {
		in   string
		want PaperType
	}{
		{"new_architecture", PaperNewArchitecture},
		{"NEW_ARCHITECTURE", PaperNewArchitecture},
		{"  survey ", PaperSurvey},
		{"application", PaperApplication},
		{"theoretical", PaperTheoretical},
		{"unknown", PaperUnknown},
		{"", PaperUnknown},
		{"garbage-value", PaperUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParsePaperType(tc.in), "input %q", tc.in)
	}
}

func TestParseComponentType_ValidMembers(t *testing.T) {
	valid := []ComponentType{
		ComponentDataset, ComponentPreprocessing, ComponentModel,
		ComponentTraining, ComponentEvaluation, ComponentResults,
		ComponentLayer, ComponentModule, ComponentHyperparameter,
		ComponentAlgorithm, ComponentMetric, ComponentOther,
	}
	for _, ct := range valid {
		got, ok := ParseComponentType(string(ct))
		require.True(t, ok, "type %q should validate", ct)
		// Idempotence: a valid value passes through unchanged.
		assert.Equal(t, ct, got)
	}
}

func TestParseComponentType_CaseInsensitive(t *testing.T) {
	got, ok := ParseComponentType("DATASET")
	require.True(t, ok)
	assert.Equal(t, ComponentDataset, got)

	got, ok = ParseComponentType(" Model ")
	require.True(t, ok)
	assert.Equal(t, ComponentModel, got)
}

func TestParseComponentType_Invalid(t *testing.T) {
	got, ok := ParseComponentType("transformer-block")
	assert.False(t, ok)
	assert.Equal(t, ComponentOther, got)

	got, ok = ParseComponentType("")
	assert.False(t, ok)
	assert.Equal(t, ComponentOther, got)
}

func TestPaperStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCompletedMinimal.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewPaper(t *testing.T) {
	p := NewPaper("Attention Is All You Need")
	require.NotEmpty(t, p.ID)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.NotNil(t, p.Sections)
	assert.False(t, p.UploadedAt.IsZero())
}

func TestDiagnosticsRecord(t *testing.T) {
	d := NewDiagnostics()
	d.Record("characterization", StageDiagnostics{Status: StageSuccess, DurationMS: 12})
	d.Record("components", StageDiagnostics{Status: StageFailed, Error: "boom"})

	require.Len(t, d.Stages, 2)
	assert.Equal(t, StageSuccess, d.Stages["characterization"].Status)
	assert.Equal(t, "boom", d.Stages["components"].Error)

	// Record on a zero-value struct must not panic.
	var zero Diagnostics
	zero.Record("diagram", StageDiagnostics{Status: StageSkipped})
	assert.Equal(t, StageSkipped, zero.Stages["diagram"].Status)
}
