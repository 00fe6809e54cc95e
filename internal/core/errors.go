package core

import (
	"fmt"
)

// GapKind classifies a non-fatal data gap collected during classification or
// correlation.
type GapKind string

const (
	// GapMissingCourse means a member references a course code with no row in
	// the course table.
	GapMissingCourse GapKind = "missing_course_definition"
	// GapUnparsableArtifact means an archived filename does not decode into
	// the member_id/first/last pattern.
	GapUnparsableArtifact GapKind = "unparsable_artifact"
	// GapUnknownMember means a decoded member identifier is absent from the
	// roster.
	GapUnknownMember GapKind = "unknown_member"
)

// DataGap records one gap. Gaps are accumulated and reported alongside the
// primary result; they never abort processing of other members or files.
type DataGap struct {
	Kind    GapKind
	Subject string
	Detail  string
}

func (g DataGap) String() string {
	return fmt.Sprintf("%s: %s (%s)", g.Kind, g.Subject, g.Detail)
}

// ConfigurationError is a fatal input problem: the batch must halt before
// producing any output because all subsequent work would be meaningless.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError builds a ConfigurationError for the named input.
func NewConfigurationError(field, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason, Err: err}
}
