// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// Regex definitions use \x60 (hex representation) for backticks because Go raw strings cannot contain backticks.

	// jsonObjectRegex extracts a JSON object wrapped in a markdown fence.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	// jsonArrayRegex extracts a JSON array wrapped in a markdown fence.
	jsonArrayRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
	// fencedBlockRegex extracts any fenced block regardless of language tag.
	fencedBlockRegex = regexp.MustCompile("(?s)\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60")
)

// ParseError signals that a model response could not be decoded into the
// expected shape. It preserves the raw response for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to decode model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON pulls the most plausible JSON payload out of a model response,
// handling markdown fences and conversational padding. It does not validate
// the payload beyond locating its boundaries.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)
	isObject := strings.Contains(response, "{")
	isArray := strings.Contains(response, "[")

	if strings.HasPrefix(response, "```") {
		var matches []string
		if isObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		if len(matches) <= 1 && isArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}
		if len(matches) > 1 {
			return matches[1]
		}
	}

	if strings.HasPrefix(response, "{") || strings.HasPrefix(response, "[") {
		return response
	}

	// Locate the structure within surrounding prose.
	if isObject {
		fb := strings.Index(response, "{")
		lb := strings.LastIndex(response, "}")
		if fb != -1 && lb > fb {
			return response[fb : lb+1]
		}
	}
	if isArray {
		fb := strings.Index(response, "[")
		lb := strings.LastIndex(response, "]")
		if fb != -1 && lb > fb {
			return response[fb : lb+1]
		}
	}
	return response
}

// ParseJSONResponse decodes a model response into T, tolerating markdown
// fences and conversational text around the payload. On failure the returned
// error is a *ParseError carrying the raw response.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := ExtractJSON(response)

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, &ParseError{Raw: response, Err: err}
	}
	return &result, nil
}

// DecodeList decodes a model response that should contain a JSON list of T,
// accepting three shapes in order: a bare list, an object holding the list
// under key, or a JSON-encoded string containing either. Anything else is a
// *ParseError.
func DecodeList[T any](response, key string) ([]T, error) {
	payload := []byte(ExtractJSON(response))

	// Shape A: bare list.
	var list []T
	if err := json.Unmarshal(payload, &list); err == nil {
		return list, nil
	}

	// Shape B: object with the list under key.
	var wrapped map[string]jsoniter.RawMessage
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}

	// Shape C: a JSON string encoding shape A or B.
	var encoded string
	if err := json.Unmarshal(payload, &encoded); err == nil && encoded != "" {
		return DecodeList[T](encoded, key)
	}

	return nil, &ParseError{Raw: response, Err: fmt.Errorf("no %q list found in any accepted shape", key)}
}

// ExtractFencedBlock returns the content of the first markdown fence in the
// response, or the trimmed response itself when no fence is present.
func ExtractFencedBlock(response string) string {
	response = strings.TrimSpace(response)
	if strings.Contains(response, "```") {
		if matches := fencedBlockRegex.FindStringSubmatch(response); len(matches) > 1 {
			return strings.TrimSpace(matches[1])
		}
	}
	return response
}

// Truncate shortens s for prompt embedding and error logging. Byte-based;
// sufficient for bounding prompt size.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
