package task

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var storeSchema string

// ValidationResult collects the outcome of a store file validation.
type ValidationResult struct {
	Valid    bool
	Errors   []error
	Warnings []string
}

// ValidateFile validates raw store file content against the embedded
// JSON Schema plus the duplicate-id and completion-timestamp checks the
// schema cannot express.
func ValidateFile(data []byte) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("invalid JSON: %w", err),
		})
		return result
	}

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("tasks.schema.json", strings.NewReader(storeSchema)); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("schema unavailable: %v", err))
		return result
	}
	schema, err := compiler.Compile("tasks.schema.json")
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("schema unavailable: %v", err))
		return result
	}

	if err := schema.Validate(doc); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err == nil {
		validateInvariants(&f, result)
	}

	return result
}

// validateInvariants checks id uniqueness and the completed/completed_at
// pairing across the parsed file.
func validateInvariants(f *storeFile, result *ValidationResult) {
	seen := make(map[int]bool, len(f.Tasks))
	for i, t := range f.Tasks {
		path := fmt.Sprintf("tasks[%d]", i)
		if t.ID != 0 && seen[t.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Field: path + ".id",
				Err:   fmt.Errorf("duplicate id %d", t.ID),
			})
		}
		seen[t.ID] = true

		if t.Completed && t.CompletedAt == nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: completed without completed_at", path))
		}
		if !t.Completed && t.CompletedAt != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: completed_at set on incomplete task, will be cleared on load", path))
		}
	}
}

func appendSchemaErrors(result *ValidationResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Field: jsonPointerToPath(err.InstanceLocation),
			Err:   fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}

	return path
}
