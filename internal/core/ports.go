package core

import (
	"context"
	"time"
)

// EmailSender delivers one rendered message. Implementations wrap a bulk
// provider API, a direct SMTP relay, or SES.
type EmailSender interface {
	// Send delivers the message, returning an error on rejection or
	// transport failure.
	Send(ctx context.Context, msg *OutboundEmail) error

	// Name identifies the transport for logging and the send log.
	Name() string
}

// SuppressionSource reports delivery failures recorded by the bulk
// provider (bounces, blocks, invalid addresses).
type SuppressionSource interface {
	// Failures returns provider-recorded failures, optionally limited to
	// those at or after startTime (epoch seconds).
	Failures(ctx context.Context, startTime *int64) ([]DeliveryFailure, error)
}

// SendLogRepository archives per-recipient send outcomes.
type SendLogRepository interface {
	// Record appends one send outcome.
	Record(ctx context.Context, rec *SendRecord) error

	// RecentFailures returns failed sends recorded at or after since.
	RecentFailures(ctx context.Context, since time.Time) ([]SendRecord, error)

	// Close releases any underlying storage.
	Close() error
}

// ArchiveStore keeps rendered HTML copies of sent notifications, one file
// per recipient named {member_id}_{FIRST}_{LAST}.html. The archive doubles
// as the audit record and the retry source.
type ArchiveStore interface {
	// Save writes the rendered HTML and returns the artifact filename.
	Save(memberID, firstName, lastName, html string) (string, error)

	// List returns the artifact filenames currently archived.
	List() ([]string, error)

	// Read returns the archived HTML for one artifact.
	Read(name string) (string, error)
}

// Renderer binds a member's record and notification state into a rendered
// message body and subject line.
type Renderer interface {
	RenderEmail(templateName string, member MemberRecord, state NotificationState, extractionDate, today time.Time) (string, error)
	RenderSubject(subjectTemplate string, member MemberRecord, state NotificationState, extractionDate, today time.Time) (string, error)
}
