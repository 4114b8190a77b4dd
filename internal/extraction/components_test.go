package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/paperlens/api/schemas"
)

const hierarchicalSample = `{
  "paper_summary": "Introduces the Transformer architecture.",
  "pipeline_stages": [
    {
      "stage_name": "Data",
      "components": [
        {"id": "t1", "type": "dataset", "name": "WMT 2014", "description": "Translation corpus", "is_novel": false, "children": []}
      ]
    },
    {
      "stage_name": "Architecture",
      "components": [
        {
          "id": "t2", "type": "model", "name": "Transformer", "description": "Attention-only model", "is_novel": true,
          "children": [
            {"id": "t3", "type": "layer", "name": "Multi-Head Attention", "description": "Parallel attention heads", "children": []}
          ]
        }
      ]
    }
  ]
}`

func TestExtract_HierarchicalPrimary(t *testing.T) {
	llm := newScriptedLLM(scriptedReply{response: hierarchicalSample})
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "paper-1", schemas.PaperNewArchitecture, "full text")

	assert.False(t, outcome.PrimaryFailed)
	assert.False(t, outcome.UsedLastResort)
	assert.Equal(t, "Introduces the Transformer architecture.", outcome.PaperSummary)
	require.Len(t, outcome.Components, 3)

	byName := make(map[string]schemas.Component)
	for _, c := range outcome.Components {
		byName[c.Name] = c
		assert.Equal(t, "paper-1", c.PaperID)
		assert.NotEmpty(t, c.ID)
	}

	assert.Equal(t, schemas.ComponentDataset, byName["WMT 2014"].Type)
	assert.Equal(t, "Data", byName["WMT 2014"].SourceSection)
	assert.True(t, byName["Transformer"].IsNovel)
	assert.Empty(t, byName["Transformer"].ParentID)

	// Children keep the hierarchy via ParentID and inherit the stage.
	attention := byName["Multi-Head Attention"]
	assert.Equal(t, byName["Transformer"].ID, attention.ParentID)
	assert.Equal(t, "Architecture", attention.SourceSection)

	require.Equal(t, 1, llm.callCount())
	assert.Equal(t, schemas.TierPowerful, llm.requests[0].Tier)
}

func TestExtract_FallbackAfterMalformedPrimary(t *testing.T) {
	llm := newScriptedLLM(
		scriptedReply{response: "this is not json at all"},
		scriptedReply{response: `[{"name":"BERT","type":"model","description":"baseline"}]`},
	)
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "paper-1", schemas.PaperApplication, "text")

	assert.True(t, outcome.PrimaryFailed)
	assert.False(t, outcome.FallbackFailed)
	assert.False(t, outcome.UsedLastResort)
	require.Len(t, outcome.Components, 1)
	assert.Equal(t, "BERT", outcome.Components[0].Name)
	assert.Equal(t, schemas.ComponentModel, outcome.Components[0].Type)
	assert.Equal(t, 2, llm.callCount())
}

func TestExtract_FallbackAcceptsWrappedAndEncodedShapes(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "object with components key", response: `{"components":[{"name":"ResNet","type":"model"}]}`},
		{name: "json-encoded string", response: `"[{\"name\":\"ResNet\",\"type\":\"model\"}]"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			llm := newScriptedLLM(
				scriptedReply{response: "not json"},
				scriptedReply{response: tc.response},
			)
			e := NewComponentExtractor(llm, testLogger(t), 15000)

			outcome := e.Extract(context.Background(), "p", schemas.PaperUnknown, "text")
			require.Len(t, outcome.Components, 1)
			assert.Equal(t, "ResNet", outcome.Components[0].Name)
		})
	}
}

func TestExtract_LastResortSynthesis(t *testing.T) {
	llm := newScriptedLLM(
		scriptedReply{response: "garbage"},
		scriptedReply{response: "more garbage"},
	)
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "paper-1", schemas.PaperTheoretical, "text")

	assert.True(t, outcome.PrimaryFailed)
	assert.True(t, outcome.FallbackFailed)
	assert.True(t, outcome.UsedLastResort)
	require.Len(t, outcome.Components, 1)

	placeholder := outcome.Components[0]
	assert.Equal(t, schemas.ComponentOther, placeholder.Type)
	assert.Contains(t, placeholder.Name, "theoretical")
	assert.Contains(t, placeholder.Details, "extraction_note")
}

func TestExtract_NeverEmpty(t *testing.T) {
	// Even with every call erroring, the result has at least one component.
	llm := newScriptedLLM()
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "paper-1", schemas.PaperUnknown, "text")
	assert.NotEmpty(t, outcome.Components)
	assert.True(t, outcome.UsedLastResort)
}

func TestExtract_EmptyPrimaryListTriggersFallback(t *testing.T) {
	llm := newScriptedLLM(
		scriptedReply{response: `{"paper_summary":"s","pipeline_stages":[]}`},
		scriptedReply{response: `[{"name":"GPT","type":"model"}]`},
	)
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "p", schemas.PaperUnknown, "text")
	assert.True(t, outcome.PrimaryFailed)
	require.Len(t, outcome.Components, 1)
	assert.Equal(t, "GPT", outcome.Components[0].Name)
}

func TestCoerceType(t *testing.T) {
	e := NewComponentExtractor(newScriptedLLM(), testLogger(t), 15000)

	tests := []struct {
		name        string
		reported    string
		compName    string
		description string
		section     string
		want        schemas.ComponentType
	}{
		{name: "valid lowercase", reported: "dataset", want: schemas.ComponentDataset},
		{name: "valid uppercase", reported: "MODEL", want: schemas.ComponentModel},
		{name: "valid padded", reported: " metric ", want: schemas.ComponentMetric},
		{name: "dataset keyword", reported: "bogus", compName: "ImageNet corpus", want: schemas.ComponentDataset},
		{name: "model keyword", reported: "", description: "a neural network baseline", want: schemas.ComponentModel},
		{name: "layer keyword", reported: "thing", compName: "attention head", want: schemas.ComponentLayer},
		{name: "metric keyword", reported: "score", description: "measures f1 on the test set", want: schemas.ComponentMetric},
		{name: "methods section default", reported: "bogus", compName: "beam search", section: "methods", want: schemas.ComponentAlgorithm},
		{name: "architecture section default", reported: "bogus", compName: "positional encoding", section: "Architecture", want: schemas.ComponentModule},
		{name: "results section default", reported: "bogus", compName: "sota comparison", section: "Results", want: schemas.ComponentResults},
		{name: "experiments section default", reported: "bogus", compName: "ablation", section: "experiments", want: schemas.ComponentEvaluation},
		{name: "no signal at all", reported: "bogus", compName: "misc", want: schemas.ComponentOther},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.coerceType(tc.reported, tc.compName, tc.description, tc.section)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCoerceType_IdempotentOnValidValues(t *testing.T) {
	e := NewComponentExtractor(newScriptedLLM(), testLogger(t), 15000)

	for _, ct := range []schemas.ComponentType{
		schemas.ComponentDataset, schemas.ComponentPreprocessing, schemas.ComponentModel,
		schemas.ComponentTraining, schemas.ComponentEvaluation, schemas.ComponentResults,
		schemas.ComponentLayer, schemas.ComponentModule, schemas.ComponentHyperparameter,
		schemas.ComponentAlgorithm, schemas.ComponentMetric, schemas.ComponentOther,
	} {
		assert.Equal(t, ct, e.coerceType(string(ct), "", "", ""))
	}
}

func TestFlattenNode_DropsUnnamed(t *testing.T) {
	llm := newScriptedLLM(scriptedReply{response: `{
		"pipeline_stages": [
			{"stage_name": "Data", "components": [
				{"type": "dataset", "name": "", "children": [
					{"type": "dataset", "name": "Kept Child"}
				]}
			]}
		]
	}`})
	e := NewComponentExtractor(llm, testLogger(t), 15000)

	outcome := e.Extract(context.Background(), "p", schemas.PaperUnknown, "text")
	// The unnamed parent is dropped along with its subtree; extraction falls
	// through to the ladder only if nothing at all survives.
	for _, c := range outcome.Components {
		assert.NotEmpty(t, c.Name)
	}
}
