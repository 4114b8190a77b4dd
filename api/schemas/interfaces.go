// api/schemas/interfaces.go
package schemas

import "context"

// ModelTier selects a large language model by preference for speed versus
// capability.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions controls the text generation process.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// GenerationRequest encapsulates one prompt execution against the model
// backend. Every extraction stage builds one of these.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient abstracts the model-calling backend. A single client instance is
// shared by all in-flight pipelines and must be safe for concurrent use.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}

// StructuralMetadata carries the layout hints a text extractor recovered
// alongside the raw text.
type StructuralMetadata struct {
	Pages    int             `json:"pages"`
	Sections []LayoutSection `json:"sections,omitempty"`
}

// LayoutSection is a heading-delimited span detected by the extraction layer,
// before any AI involvement.
type LayoutSection struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Start Location `json:"start_location"`
	End   Location `json:"end_location"`
}

// TextExtractor turns a document on disk into raw text plus optional
// structural hints.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, *StructuralMetadata, error)
	// Name identifies the extraction method for diagnostics.
	Name() string
}

// PaperStore is the external record keeper for papers. Last-write-wins; no
// transactions.
type PaperStore interface {
	Add(paper *Paper)
	Get(id string) (*Paper, bool)
	Update(paper *Paper)
}
