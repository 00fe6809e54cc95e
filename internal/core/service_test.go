package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRenderer struct {
	failFor string
}

func (r *stubRenderer) RenderEmail(_ string, member MemberRecord, _ NotificationState, _, _ time.Time) (string, error) {
	if member.ID == r.failFor {
		return "", errors.New("template exploded")
	}
	return "<html>" + member.ID + "</html>", nil
}

func (r *stubRenderer) RenderSubject(_ string, member MemberRecord, _ NotificationState, _, _ time.Time) (string, error) {
	return "Reminder for " + member.FirstName, nil
}

type recordingSender struct {
	sent     []*OutboundEmail
	failAddr string
}

func (s *recordingSender) Name() string { return "test" }

func (s *recordingSender) Send(_ context.Context, msg *OutboundEmail) error {
	if msg.To == s.failAddr {
		return errors.New("mailbox on fire")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type memoryArchive struct {
	saved map[string]string
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{saved: make(map[string]string)}
}

func (a *memoryArchive) Save(memberID, firstName, lastName, html string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.html", memberID, firstName, lastName)
	name = strings.ReplaceAll(name, " ", "_")
	a.saved[name] = html
	return name, nil
}

func (a *memoryArchive) List() ([]string, error) {
	names := make([]string, 0, len(a.saved))
	for name := range a.saved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (a *memoryArchive) Read(name string) (string, error) {
	html, ok := a.saved[name]
	if !ok {
		return "", fmt.Errorf("no artifact %s", name)
	}
	return html, nil
}

type memoryLog struct {
	records []SendRecord
}

func (l *memoryLog) Record(_ context.Context, rec *SendRecord) error {
	l.records = append(l.records, *rec)
	return nil
}

func (l *memoryLog) RecentFailures(_ context.Context, since time.Time) ([]SendRecord, error) {
	var failed []SendRecord
	for _, rec := range l.records {
		if rec.Status == SendStatusFailed && !rec.SentAt.Before(since) {
			failed = append(failed, rec)
		}
	}
	return failed, nil
}

func (l *memoryLog) Close() error { return nil }

type stubSuppressions struct {
	failures []DeliveryFailure
}

func (s *stubSuppressions) Failures(_ context.Context, _ *int64) ([]DeliveryFailure, error) {
	return s.failures, nil
}

func testMembers() []MemberRecord {
	return []MemberRecord{
		{ID: "1", FirstName: "ANNA", LastName: "ABLE", Email: "anna@example.com", UniformExempt: true,
			Courses: []CourseStanding{{Code: "TFR_502306", DaysUntilDue: 30}}},
		{ID: "2", FirstName: "BOB", LastName: "BAKER", Email: "bob@example.com", UniformExempt: true},
		{ID: "3", FirstName: "CARA", LastName: "CHASE", Email: "cara@example.com", UniformExempt: true},
	}
}

func TestSendBatchSendsEveryMember(t *testing.T) {
	sender := &recordingSender{}
	sendLog := &memoryLog{}
	store := newMemoryArchive()
	service := NewMailerService(&stubRenderer{}, sender, store, sendLog, zap.NewNop(),
		"team@example.org", "reply@example.org")

	var progress []int
	result, err := service.SendBatch(context.Background(), testMembers(), courseTable("TFR_502306"), BatchOptions{
		Today:    date(2025, time.June, 1),
		Progress: func(done, _ int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	assert.Len(t, result.Sent, 3)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Len(t, sender.sent, 3)
	assert.Equal(t, "team@example.org", sender.sent[0].From)
	assert.Equal(t, "reply@example.org", sender.sent[0].ReplyTo)
	assert.Len(t, store.saved, 3)
	assert.Contains(t, store.saved, "1_ANNA_ABLE.html")
	require.Len(t, sendLog.records, 3)
	assert.Equal(t, SendStatusSent, sendLog.records[0].Status)
}

func TestSendBatchContinuesPastFailures(t *testing.T) {
	sender := &recordingSender{failAddr: "bob@example.com"}
	sendLog := &memoryLog{}
	service := NewMailerService(&stubRenderer{}, sender, newMemoryArchive(), sendLog, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), testMembers(), courseTable("TFR_502306"), BatchOptions{
		Today: date(2025, time.June, 1),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"anna@example.com", "cara@example.com"}, result.Sent)
	assert.Equal(t, []string{"bob@example.com"}, result.Failed)

	var statuses []string
	for _, rec := range sendLog.records {
		statuses = append(statuses, rec.Status)
	}
	assert.Equal(t, []string{SendStatusSent, SendStatusFailed, SendStatusSent}, statuses)
}

func TestSendBatchRenderFailureIsPerMember(t *testing.T) {
	sender := &recordingSender{}
	service := NewMailerService(&stubRenderer{failFor: "2"}, sender, newMemoryArchive(), nil, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), testMembers(), courseTable("TFR_502306"), BatchOptions{
		Today: date(2025, time.June, 1),
	})
	require.NoError(t, err)
	assert.Len(t, result.Sent, 2)
	assert.Equal(t, []string{"bob@example.com"}, result.Failed)
}

func TestSendBatchSkipsMembersWithoutEmail(t *testing.T) {
	members := testMembers()
	members[1].Email = ""
	sender := &recordingSender{}
	service := NewMailerService(&stubRenderer{}, sender, newMemoryArchive(), nil, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), members, courseTable("TFR_502306"), BatchOptions{
		Today: date(2025, time.June, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Sent, 2)
	assert.Len(t, sender.sent, 2)
}

func TestSendBatchDryRunArchivesWithoutSending(t *testing.T) {
	sender := &recordingSender{}
	sendLog := &memoryLog{}
	store := newMemoryArchive()
	service := NewMailerService(&stubRenderer{}, sender, store, sendLog, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), testMembers(), courseTable("TFR_502306"), BatchOptions{
		Today:  date(2025, time.June, 1),
		DryRun: true,
	})
	require.NoError(t, err)

	assert.Len(t, result.Sent, 3)
	assert.Empty(t, sender.sent, "dry run must not deliver")
	assert.Empty(t, sendLog.records, "dry run must not record outcomes")
	assert.Len(t, store.saved, 3, "dry run still archives rendered output")
}

func TestSendBatchFatalWhenCourseTableEmpty(t *testing.T) {
	service := NewMailerService(&stubRenderer{}, &recordingSender{}, newMemoryArchive(), nil, zap.NewNop(), "team@example.org", "")

	_, err := service.SendBatch(context.Background(), testMembers(), nil, BatchOptions{
		Today: date(2025, time.June, 1),
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	// Members without any course standings do not trip the check.
	noCourses := []MemberRecord{{ID: "9", Email: "x@example.com", UniformExempt: true}}
	_, err = service.SendBatch(context.Background(), noCourses, nil, BatchOptions{
		Today: date(2025, time.June, 1),
	})
	assert.NoError(t, err)
}

func TestSendBatchArchivesBeforeSending(t *testing.T) {
	sender := &recordingSender{failAddr: "anna@example.com"}
	store := newMemoryArchive()
	service := NewMailerService(&stubRenderer{}, sender, store, nil, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), testMembers()[:1], courseTable("TFR_502306"), BatchOptions{
		Today: date(2025, time.June, 1),
	})
	require.NoError(t, err)
	assert.Len(t, result.Failed, 1)
	// The artifact must exist even though delivery failed, so a retry pass
	// has something to resend.
	assert.Contains(t, store.saved, "1_ANNA_ABLE.html")
}

func TestSendBatchCollectsClassificationGaps(t *testing.T) {
	members := []MemberRecord{{
		ID: "1", Email: "anna@example.com", UniformExempt: true,
		Courses: []CourseStanding{{Code: "NOT_IN_TABLE", DaysUntilDue: 5}},
	}}
	service := NewMailerService(&stubRenderer{}, &recordingSender{}, newMemoryArchive(), nil, zap.NewNop(), "team@example.org", "")

	result, err := service.SendBatch(context.Background(), members, courseTable("TFR_502306"), BatchOptions{
		Today: date(2025, time.June, 1),
	})
	require.NoError(t, err)
	require.Len(t, result.Gaps, 1)
	assert.Equal(t, GapMissingCourse, result.Gaps[0].Kind)
	// The member is still emailed; a data gap is not a delivery failure.
	assert.Len(t, result.Sent, 1)
}

func retryFixture() (*stubSuppressions, *memoryArchive, map[string]RosterEntry) {
	suppressions := &stubSuppressions{failures: []DeliveryFailure{
		{Email: "anna@example.com", Category: "bounce", Timestamp: 100},
	}}
	store := newMemoryArchive()
	store.saved["1_ANNA_ABLE.html"] = "<html>1</html>"
	roster := map[string]RosterEntry{
		"1": {MemberID: "1", Email: "anna@example.com", FirstName: "Anna", LastName: "Able"},
	}
	return suppressions, store, roster
}

func TestRetryServiceResendsMatchedArtifacts(t *testing.T) {
	suppressions, store, roster := retryFixture()
	sender := &recordingSender{}
	sendLog := &memoryLog{}
	service := NewRetryService(suppressions, sender, store, sendLog, zap.NewNop(),
		"team@example.org", "AUXCT Training Reminder")

	result, err := service.Run(context.Background(), roster, RetryOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"anna@example.com"}, result.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "<html>1</html>", sender.sent[0].HTMLBody)
	assert.Equal(t, "AUXCT Training Reminder - Anna Able", sender.sent[0].Subject)

	require.Len(t, sendLog.records, 1)
	assert.Equal(t, SendStatusRetry, sendLog.records[0].Status)
}

func TestRetryServiceListOnly(t *testing.T) {
	suppressions, store, roster := retryFixture()
	sender := &recordingSender{}
	service := NewRetryService(suppressions, sender, store, nil, zap.NewNop(), "team@example.org", "prefix")

	result, err := service.Run(context.Background(), roster, RetryOptions{ListOnly: true})
	require.NoError(t, err)

	assert.Empty(t, sender.sent)
	assert.Empty(t, result.Sent)
	require.Len(t, result.Targets, 1)
	assert.Equal(t, "1_ANNA_ABLE.html", result.Targets[0].ArtifactName)
}

func TestRetryServiceDryRun(t *testing.T) {
	suppressions, store, roster := retryFixture()
	sender := &recordingSender{}
	service := NewRetryService(suppressions, sender, store, nil, zap.NewNop(), "team@example.org", "prefix")

	result, err := service.Run(context.Background(), roster, RetryOptions{DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, sender.sent)
	// Dry-run resends count as handled so the summary reflects what a real
	// run would have done.
	assert.Equal(t, []string{"anna@example.com"}, result.Sent)
}

func TestRetryServiceReportsLocalFailures(t *testing.T) {
	suppressions, store, roster := retryFixture()
	sendLog := &memoryLog{records: []SendRecord{
		{Email: "bob@example.com", Status: SendStatusFailed, SentAt: time.Unix(200, 0)},
		{Email: "ok@example.com", Status: SendStatusSent, SentAt: time.Unix(200, 0)},
		{Email: "early@example.com", Status: SendStatusFailed, SentAt: time.Unix(50, 0)},
	}}
	service := NewRetryService(suppressions, &recordingSender{}, store, sendLog, zap.NewNop(), "team@example.org", "prefix")

	start := int64(100)
	result, err := service.Run(context.Background(), roster, RetryOptions{StartTime: &start, ListOnly: true})
	require.NoError(t, err)

	require.Len(t, result.LocalFailures, 1)
	assert.Equal(t, "bob@example.com", result.LocalFailures[0].Email)
}
