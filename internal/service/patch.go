package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Patch is one proposed change to a user's task list: a DeletePatch,
// an UpdatePatch or a CreatePatch.
type Patch interface {
	patch()
}

// DeletePatch soft-deletes a task. ID 0 means no id was given and the
// patch does nothing.
type DeletePatch struct {
	ID uint
}

// UpdatePatch overwrites the present fields of an existing task. When the
// id does not resolve for the user it is applied as a creation instead.
type UpdatePatch struct {
	ID     uint
	Fields Fields
}

// CreatePatch adds a new task. Fields.Title is always set.
type CreatePatch struct {
	Fields Fields
}

func (DeletePatch) patch() {}
func (UpdatePatch) patch() {}
func (CreatePatch) patch() {}

// Fields holds the optional task fields of a patch. Nil means absent.
type Fields struct {
	Title         *string
	EstimatedTime *string
	DueDate       *string
	Progress      *int
	Category      *CategoryRef
}

// CategoryRef names a category to resolve or create.
type CategoryRef struct {
	Name  string
	Color string
}

// ParsePatches turns loosely typed patch records, as produced by the command
// translator, into typed patches. Records are
// {id, title, estimated_time, due_date, progress, category, action}, all optional.
func ParsePatches(records []map[string]any) ([]Patch, error) {
	patches := make([]Patch, 0, len(records))
	for i, rec := range records {
		p, err := parsePatch(rec)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func parsePatch(rec map[string]any) (Patch, error) {
	id, err := parseID(rec["id"])
	if err != nil {
		return nil, err
	}

	if action, _ := rec["action"].(string); strings.EqualFold(strings.TrimSpace(action), "delete") {
		return DeletePatch{ID: id}, nil
	}

	fields, err := parseFields(rec)
	if err != nil {
		return nil, err
	}
	if id != 0 {
		return UpdatePatch{ID: id, Fields: fields}, nil
	}
	if fields.Title == nil {
		return nil, validationf("title is required")
	}
	return CreatePatch{Fields: fields}, nil
}

func parseFields(rec map[string]any) (Fields, error) {
	var f Fields
	var err error

	if f.Title, err = stringField(rec, "title"); err != nil {
		return f, err
	}
	if f.EstimatedTime, err = stringField(rec, "estimated_time"); err != nil {
		return f, err
	}
	if f.DueDate, err = stringField(rec, "due_date"); err != nil {
		return f, err
	}
	if raw, ok := rec["progress"]; ok && raw != nil {
		p, err := ParseProgress(raw)
		if err != nil {
			return f, err
		}
		f.Progress = &p
	}
	if f.Category, err = categoryField(rec["category"]); err != nil {
		return f, err
	}
	return f, nil
}

// stringField returns the trimmed value of key, or nil when it is missing,
// null or blank. Numbers are accepted and formatted.
func stringField(rec map[string]any, key string) (*string, error) {
	var s string
	switch v := rec[key].(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		s = v.String()
	default:
		return nil, validationf("%s must be a string, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

// categoryField accepts a bare name or an object such as {"name": "Work", "color": "#0000ff"}.
// A color that is not #RRGGBB is dropped and the category keeps the default.
func categoryField(raw any) (*CategoryRef, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, nil
		}
		return &CategoryRef{Name: name}, nil
	case map[string]any:
		name, _ := v["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, nil
		}
		color, _ := v["color"].(string)
		color = strings.TrimSpace(color)
		if !colorPattern.MatchString(color) {
			color = ""
		}
		return &CategoryRef{Name: name, Color: color}, nil
	default:
		return nil, validationf("category must be a name, got %T", v)
	}
}

// parseID returns 0 for a missing, null, empty or non-positive id.
func parseID(raw any) (uint, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, validationf("id must be an integer, got %v", v)
		}
		if v <= 0 || v > math.MaxUint32 {
			return 0, nil
		}
		return uint(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, validationf("id must be an integer, got %q", v.String())
		}
		if n <= 0 {
			return 0, nil
		}
		return uint(n), nil
	case int:
		if v <= 0 {
			return 0, nil
		}
		return uint(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, validationf("id must be an integer, got %q", v)
		}
		if n <= 0 {
			return 0, nil
		}
		return uint(n), nil
	default:
		return 0, validationf("id must be an integer, got %T", v)
	}
}

// ParseProgress converts a JSON-decoded progress value to an int. Fractions
// are truncated toward zero and numeric strings are accepted; anything else
// is a validation error. The result is not clamped.
func ParseProgress(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return clampInt64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, validationf("progress must be a number, got %v", v)
		}
		return clampInt64(int64(math.Max(math.Min(v, 1e9), -1e9))), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return clampInt64(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, validationf("progress must be a number, got %q", v.String())
		}
		return ParseProgress(f)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, validationf("progress must be an integer, got %q", v)
		}
		return n, nil
	default:
		return 0, validationf("progress must be an integer, got %T", raw)
	}
}

func clampInt64(n int64) int {
	const bound = 1 << 30
	switch {
	case n > bound:
		return bound
	case n < -bound:
		return -bound
	default:
		return int(n)
	}
}
