package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TagRule adds TagID to an approved submission when any answer contains
// Contains.
type TagRule struct {
	Contains      string `json:"contains"`
	TagID         TagID  `json:"tag_id"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// Validate returns the field errors of a rule.
func (r TagRule) Validate() []FieldError {
	var errs []FieldError
	if r.Contains == "" {
		errs = append(errs, FieldError{Field: "contains", Code: "REQUIRED", Message: "contains is required"})
	}
	if r.TagID == "" {
		errs = append(errs, FieldError{Field: "tag_id", Code: "REQUIRED", Message: "tag_id is required"})
	}
	return errs
}

// TagID is an opaque forum tag identifier. Tag files written by hand use JSON
// numbers while platform snowflakes are strings; both decode to the same value.
type TagID string

// UnmarshalJSON accepts a JSON string or number.
func (t *TagID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TagID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("tag_id must be a string or integer: %w", err)
	}
	*t = TagID(n.String())
	return nil
}

// ForumTag is a tag available on the public forum.
type ForumTag struct {
	ID    TagID
	Name  string
	Emoji string
}
