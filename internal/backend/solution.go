package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Solution is the decoded result of session creation. Steps holds the
// expected answer for each tutoring step in order; its length sets the
// session's initial progress.
type Solution struct {
	Reasoning string
	Steps     []string
}

// createSolutionResponse is the raw wire shape. The step collection is
// either an array of strings or an object keyed "Step 1", "Step 2", ….
type createSolutionResponse struct {
	ModelReasoning string          `json:"model_reasoning"`
	Response       json.RawMessage `json:"response"`
}

// solutionSchema validates the session-creation response at the boundary.
// Invalid records fail closed instead of propagating undefined fields.
var solutionSchema = map[string]any{
	"type":     "object",
	"required": []any{"model_reasoning", "response"},
	"properties": map[string]any{
		"model_reasoning": map[string]any{"type": "string"},
		"response": map[string]any{
			"anyOf": []any{
				map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"minItems": 1,
				},
				map[string]any{
					"type":                 "object",
					"minProperties":        1,
					"additionalProperties": map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compiledSolutionSchema     *jsonschema.Schema
	compileSolutionSchemaOnce  sync.Once
	compileSolutionSchemaError error
)

func solutionValidator() (*jsonschema.Schema, error) {
	compileSolutionSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://create-solution.json", solutionSchema); err != nil {
			compileSolutionSchemaError = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSolutionSchema, compileSolutionSchemaError = c.Compile("schema://create-solution.json")
	})
	return compiledSolutionSchema, compileSolutionSchemaError
}

// decodeSolution validates and decodes a session-creation response body.
func decodeSolution(body []byte) (*Solution, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	validator, err := solutionValidator()
	if err != nil {
		return nil, fmt.Errorf("compile solution schema: %w", err)
	}
	if err := validator.Validate(parsed); err != nil {
		return nil, fmt.Errorf("solution schema validation failed: %w", err)
	}

	var resp createSolutionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}

	steps, err := orderedSteps(resp.Response)
	if err != nil {
		return nil, err
	}

	return &Solution{Reasoning: resp.ModelReasoning, Steps: steps}, nil
}

// orderedSteps extracts the step list. Object keys are ordered by their
// trailing step number ("Step 2" before "Step 10"), falling back to
// lexicographic order for keys without one.
func orderedSteps(raw json.RawMessage) ([]string, error) {
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return asArray, nil
	}

	var asObject map[string]string
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, fmt.Errorf("step collection is neither array nor object: %w", err)
	}

	keys := make([]string, 0, len(asObject))
	for k := range asObject {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := stepNumber(keys[i])
		nj, jok := stepNumber(keys[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		if iok != jok {
			return iok
		}
		return keys[i] < keys[j]
	})

	steps := make([]string, len(keys))
	for i, k := range keys {
		steps[i] = asObject[k]
	}
	return steps, nil
}

// stepNumber parses the trailing integer of a step key, if any.
func stepNumber(key string) (int, bool) {
	fields := strings.Fields(strings.TrimSpace(key))
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[len(fields)-1], ":"))
	if err != nil {
		return 0, false
	}
	return n, true
}
