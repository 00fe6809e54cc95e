package core

import (
	"time"
)

// MemberRecord is one member's joined row from the training export and the
// email roster. Raw columns survive in Fields (original and normalized keys)
// for template pass-through.
type MemberRecord struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Status            string
	UniformInspection *time.Time
	UniformExempt     bool
	Courses           []CourseStanding
	Fields            map[string]string
}

// CourseStanding is a member's raw day-count for one course, relative to the
// extraction date. Slice order follows the course-table row order so that
// warnings come out in a stable, predictable sequence.
type CourseStanding struct {
	Code         string
	DaysUntilDue int
}

// CourseDefinition is one row of the course reference table.
type CourseDefinition struct {
	Code           string
	Title          string
	URL            string
	EnrollmentCode string
}

// CourseDueSoon is a course whose due date falls within the forward warning
// window of today, inclusive on both ends.
type CourseDueSoon struct {
	Code           string
	Title          string
	URL            string
	EnrollmentCode string
	DaysUntilDue   int
	DueDate        time.Time
}

// CourseOverdue is a course whose due date has already passed.
type CourseOverdue struct {
	Code           string
	Title          string
	URL            string
	EnrollmentCode string
	DaysOverdue    int
}

// NotificationState is the derived notification state for one member. It is
// computed fresh per classification call and never mutated afterwards.
type NotificationState struct {
	NeedsUniformInspection bool
	CoursesOverdue         []CourseOverdue
	CoursesDueSoon         []CourseDueSoon
}

// HasWarnings reports whether any course warning was emitted.
func (s NotificationState) HasWarnings() bool {
	return len(s.CoursesOverdue) > 0 || len(s.CoursesDueSoon) > 0
}

// DeliveryFailure is one provider-reported delivery failure.
type DeliveryFailure struct {
	Email     string
	Category  string
	Reason    string
	Timestamp int64
}

// RosterEntry is one row of the email roster, keyed by member identifier.
type RosterEntry struct {
	MemberID  string
	Email     string
	FirstName string
	LastName  string
}

// ArtifactInfo is the identity decoded from an archived artifact filename.
type ArtifactInfo struct {
	Name      string
	MemberID  string
	FirstName string
	LastName  string
}

// RetryTarget pairs a provider-reported failure with the archived artifact
// and roster address to resend it to.
type RetryTarget struct {
	ArtifactName string
	MemberID     string
	FirstName    string
	LastName     string
	Email        string
}

// CorrelationReport is the full accounting of a correlation pass: how many
// failures were considered, how many matched, and what was left over on
// either side.
type CorrelationReport struct {
	TotalFailures      int
	Matched            int
	UnmatchedFailures  []string
	UnmatchedArtifacts []string
	Gaps               []DataGap
}

// OutboundEmail is a rendered message handed to an EmailSender.
type OutboundEmail struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// SendRecord is one archived send outcome.
type SendRecord struct {
	MemberID string
	Email    string
	Subject  string
	Provider string
	Status   string
	Error    string
	SentAt   time.Time
}

// Send-log statuses.
const (
	SendStatusSent   = "sent"
	SendStatusFailed = "failed"
	SendStatusRetry  = "retry"
)

// BatchResult is the tally of one batch send pass.
type BatchResult struct {
	Sent    []string
	Failed  []string
	Skipped int
	Gaps    []DataGap
}

// RetryResult is the tally of one retry pass.
type RetryResult struct {
	Targets       []RetryTarget
	Report        CorrelationReport
	Sent          []string
	Failed        []string
	LocalFailures []SendRecord
}
