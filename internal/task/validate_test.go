package task

import (
	"strings"
	"testing"
)

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{
			"valid store",
			`{"tasks": [{"id": 1, "title": "a", "category": "Work",
				"completed": false, "created_at": "2024-01-01T00:00:00Z",
				"completed_at": null}], "next_id": 2}`,
			true,
		},
		{
			"empty tasks",
			`{"tasks": []}`,
			true,
		},
		{
			"not json",
			`{oops`,
			false,
		},
		{
			"wrong top-level shape",
			`["not", "an", "object"]`,
			false,
		},
		{
			"missing tasks",
			`{"next_id": 5}`,
			false,
		},
		{
			"id wrong type",
			`{"tasks": [{"id": "one", "title": "a"}]}`,
			false,
		},
		{
			"empty title",
			`{"tasks": [{"id": 1, "title": ""}]}`,
			false,
		},
		{
			"duplicate ids",
			`{"tasks": [{"id": 1, "title": "a"}, {"id": 1, "title": "b"}]}`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFile([]byte(tt.content))
			if result.Valid != tt.valid {
				t.Errorf("Valid: got %v, want %v (errors: %v)", result.Valid, tt.valid, result.Errors)
			}
			if !tt.valid && len(result.Errors) == 0 {
				t.Error("invalid result should carry at least one error")
			}
		})
	}
}

func TestValidateFileWarnsOnTimestampMismatch(t *testing.T) {
	content := `{"tasks": [
		{"id": 1, "title": "a", "completed": true},
		{"id": 2, "title": "b", "completed": false, "completed_at": "2024-01-01T00:00:00Z"}
	]}`

	result := ValidateFile([]byte(content))
	if !result.Valid {
		t.Fatalf("timestamp mismatches should warn, not fail: %v", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Warnings: got %v, want 2 entries", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "completed without completed_at") {
		t.Errorf("first warning: got %q", result.Warnings[0])
	}
}

func TestValidationErrorPaths(t *testing.T) {
	content := `{"tasks": [{"id": 1, "title": "ok"}, {"id": -5, "title": "bad"}]}`

	result := ValidateFile([]byte(content))
	if result.Valid {
		t.Fatal("negative id should fail validation")
	}

	found := false
	for _, err := range result.Errors {
		if strings.Contains(err.Error(), "tasks[1]") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors should name the offending task: %v", result.Errors)
	}
}
