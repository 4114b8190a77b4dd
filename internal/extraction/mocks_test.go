package extraction

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/paperlens/api/schemas"
	"github.com/xkilldash9x/paperlens/internal/config"
)

// scriptedReply is one canned model turn.
type scriptedReply struct {
	response string
	err      error
}

// scriptedLLM replays a fixed sequence of replies and records every request.
// Exhausting the script is a test bug, surfaced as an error response.
type scriptedLLM struct {
	mu       sync.Mutex
	script   []scriptedReply
	requests []schemas.GenerationRequest
}

func newScriptedLLM(replies ...scriptedReply) *scriptedLLM {
	return &scriptedLLM{script: replies}
}

func (m *scriptedLLM) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return "", fmt.Errorf("scripted LLM exhausted after %d calls", len(m.requests))
	}
	reply := m.script[0]
	m.script = m.script[1:]
	return reply.response, reply.err
}

func (m *scriptedLLM) Close() error { return nil }

func (m *scriptedLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MaxPromptChars:  15000,
		MinSectionChars: 100,
		Concurrency:     1,
	}
}

// sampleComponents builds the canonical three-component fixture: a dataset,
// a model, and an evaluation.
func sampleComponents(paperID string) []schemas.Component {
	return []schemas.Component{
		{ID: "comp-d", PaperID: paperID, Type: schemas.ComponentDataset, Name: "WMT 2014"},
		{ID: "comp-m", PaperID: paperID, Type: schemas.ComponentModel, Name: "Transformer"},
		{ID: "comp-e", PaperID: paperID, Type: schemas.ComponentEvaluation, Name: "BLEU Evaluation"},
	}
}
