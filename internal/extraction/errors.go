// internal/extraction/errors.go
package extraction

import "fmt"

// Error kinds attached to Paper.ErrorKind on terminal failure. They identify
// the stage that exhausted its fallbacks, not the root cause.
const (
	ErrKindTextExtraction   = "text_extraction"
	ErrKindCharacterization = "characterization"
	ErrKindComponents       = "component_extraction"
	ErrKindUnexpected       = "unexpected"
)

// Stage names used as diagnostics keys.
const (
	StageTextExtraction   = "text_extraction"
	StageCharacterization = "characterization"
	StageComponents       = "components"
	StageRelationships    = "relationships"
	StageDiagram          = "diagram"
)

// CharacterizationError means the model's characterization response could not
// be decoded in any accepted shape. The raw response is preserved so operators
// can see what the model actually said.
type CharacterizationError struct {
	Raw string
	Err error
}

func (e *CharacterizationError) Error() string {
	return fmt.Sprintf("characterization response unusable: %v", e.Err)
}

func (e *CharacterizationError) Unwrap() error { return e.Err }
