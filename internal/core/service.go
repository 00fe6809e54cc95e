package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MailerService runs the batch send pass: classify each member, render the
// personalized message, archive an HTML copy, deliver it, and record the
// outcome. Per-recipient failures are counted and logged but never abort
// the batch.
type MailerService struct {
	renderer Renderer
	sender   EmailSender
	archive  ArchiveStore
	sendLog  SendLogRepository
	logger   *zap.Logger
	from     string
	replyTo  string
}

// NewMailerService creates a new batch mailer service. sendLog may be nil
// when logging of outcomes is disabled.
func NewMailerService(
	renderer Renderer,
	sender EmailSender,
	archive ArchiveStore,
	sendLog SendLogRepository,
	logger *zap.Logger,
	from string,
	replyTo string,
) *MailerService {
	return &MailerService{
		renderer: renderer,
		sender:   sender,
		archive:  archive,
		sendLog:  sendLog,
		logger:   logger,
		from:     from,
		replyTo:  replyTo,
	}
}

// BatchOptions parameterizes one batch send pass.
type BatchOptions struct {
	TemplateName    string
	SubjectTemplate string
	ExtractionDate  time.Time
	Today           time.Time
	DryRun          bool
	Progress        func(done, total int)
}

// SendBatch classifies, renders, archives and sends one message per member.
// In dry-run mode messages are rendered and archived but not delivered or
// recorded.
func (s *MailerService) SendBatch(ctx context.Context, members []MemberRecord, courses map[string]CourseDefinition, opts BatchOptions) (*BatchResult, error) {
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	if opts.ExtractionDate.IsZero() {
		opts.ExtractionDate = opts.Today
	}

	if len(courses) == 0 && anyMemberHasCourses(members) {
		return nil, NewConfigurationError("courses-csv",
			"members reference course codes but zero course definitions were loaded", nil)
	}

	result := &BatchResult{}
	for i, member := range members {
		s.processMember(ctx, member, courses, opts, result)
		if opts.Progress != nil {
			opts.Progress(i+1, len(members))
		}
	}

	s.logger.Info("Batch complete",
		zap.Int("sent", len(result.Sent)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("skipped", result.Skipped),
		zap.Int("gaps", len(result.Gaps)),
		zap.Bool("dry_run", opts.DryRun))

	return result, nil
}

func (s *MailerService) processMember(ctx context.Context, member MemberRecord, courses map[string]CourseDefinition, opts BatchOptions, result *BatchResult) {
	state, gaps := Classify(member, courses, opts.ExtractionDate, opts.Today)
	for _, gap := range gaps {
		s.logger.Warn("Classification gap",
			zap.String("member_id", member.ID),
			zap.String("kind", string(gap.Kind)),
			zap.String("subject", gap.Subject))
	}
	result.Gaps = append(result.Gaps, gaps...)

	if member.Email == "" {
		s.logger.Warn("Member has no email address, skipping", zap.String("member_id", member.ID))
		result.Skipped++
		return
	}

	subject, err := s.renderer.RenderSubject(opts.SubjectTemplate, member, state, opts.ExtractionDate, opts.Today)
	if err != nil {
		s.fail(ctx, member, "", opts, result, fmt.Errorf("render subject: %w", err))
		return
	}
	html, err := s.renderer.RenderEmail(opts.TemplateName, member, state, opts.ExtractionDate, opts.Today)
	if err != nil {
		s.fail(ctx, member, subject, opts, result, fmt.Errorf("render body: %w", err))
		return
	}

	// Archive before sending: bulk providers accept first and bounce
	// later, so the artifact must exist for every recipient a retry pass
	// might need to reach.
	artifact, err := s.archive.Save(member.ID, member.FirstName, member.LastName, html)
	if err != nil {
		s.fail(ctx, member, subject, opts, result, fmt.Errorf("archive: %w", err))
		return
	}

	if opts.DryRun {
		s.logger.Info("Dry run: rendered and archived",
			zap.String("member_id", member.ID),
			zap.String("email", member.Email),
			zap.String("artifact", artifact))
		result.Sent = append(result.Sent, member.Email)
		return
	}

	msg := &OutboundEmail{
		From:     s.from,
		To:       member.Email,
		ReplyTo:  s.replyTo,
		Subject:  subject,
		HTMLBody: html,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.fail(ctx, member, subject, opts, result, err)
		return
	}

	s.record(ctx, &SendRecord{
		MemberID: member.ID,
		Email:    member.Email,
		Subject:  subject,
		Provider: s.sender.Name(),
		Status:   SendStatusSent,
		SentAt:   time.Now(),
	})
	s.logger.Info("Sent", zap.String("email", member.Email), zap.String("artifact", artifact))
	result.Sent = append(result.Sent, member.Email)
}

func (s *MailerService) fail(ctx context.Context, member MemberRecord, subject string, opts BatchOptions, result *BatchResult, err error) {
	s.logger.Error("Failed to send",
		zap.String("member_id", member.ID),
		zap.String("email", member.Email),
		zap.Error(err))
	result.Failed = append(result.Failed, member.Email)
	if opts.DryRun {
		return
	}
	provider := ""
	if s.sender != nil {
		provider = s.sender.Name()
	}
	s.record(ctx, &SendRecord{
		MemberID: member.ID,
		Email:    member.Email,
		Subject:  subject,
		Provider: provider,
		Status:   SendStatusFailed,
		Error:    err.Error(),
		SentAt:   time.Now(),
	})
}

func (s *MailerService) record(ctx context.Context, rec *SendRecord) {
	if s.sendLog == nil {
		return
	}
	if err := s.sendLog.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to record send outcome", zap.Error(err), zap.String("email", rec.Email))
	}
}

func anyMemberHasCourses(members []MemberRecord) bool {
	for _, m := range members {
		if len(m.Courses) > 0 {
			return true
		}
	}
	return false
}

// RetryService re-delivers archived notifications whose first delivery the
// bulk provider reported as failed. It queries the provider's suppression
// records, correlates them back to archived artifacts via the roster, and
// resends each match through the configured relay sender.
type RetryService struct {
	suppressions  SuppressionSource
	sender        EmailSender
	archive       ArchiveStore
	sendLog       SendLogRepository
	logger        *zap.Logger
	from          string
	subjectPrefix string
}

// NewRetryService creates a new retry service. sendLog may be nil.
func NewRetryService(
	suppressions SuppressionSource,
	sender EmailSender,
	archive ArchiveStore,
	sendLog SendLogRepository,
	logger *zap.Logger,
	from string,
	subjectPrefix string,
) *RetryService {
	return &RetryService{
		suppressions:  suppressions,
		sender:        sender,
		archive:       archive,
		sendLog:       sendLog,
		logger:        logger,
		from:          from,
		subjectPrefix: subjectPrefix,
	}
}

// RetryOptions parameterizes one retry pass.
type RetryOptions struct {
	StartTime *int64
	ListOnly  bool
	DryRun    bool
}

// Run queries suppressions, correlates them against the archive and roster,
// and unless list-only/dry-run resends each matched artifact.
func (s *RetryService) Run(ctx context.Context, roster map[string]RosterEntry, opts RetryOptions) (*RetryResult, error) {
	failures, err := s.suppressions.Failures(ctx, opts.StartTime)
	if err != nil {
		return nil, fmt.Errorf("query suppressions: %w", err)
	}
	artifacts, err := s.archive.List()
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	targets, report := Correlate(failures, artifacts, roster, opts.StartTime)
	result := &RetryResult{Targets: targets, Report: report}

	for _, gap := range report.Gaps {
		s.logger.Warn("Correlation gap",
			zap.String("kind", string(gap.Kind)),
			zap.String("subject", gap.Subject))
	}

	if s.sendLog != nil {
		since := time.Unix(0, 0)
		if opts.StartTime != nil {
			since = time.Unix(*opts.StartTime, 0)
		}
		local, err := s.sendLog.RecentFailures(ctx, since)
		if err != nil {
			s.logger.Warn("Failed to read local send log", zap.Error(err))
		} else {
			result.LocalFailures = local
		}
	}

	if opts.ListOnly {
		return result, nil
	}

	for _, target := range targets {
		if err := s.resend(ctx, target, opts.DryRun); err != nil {
			s.logger.Error("Retry failed",
				zap.String("email", target.Email),
				zap.String("artifact", target.ArtifactName),
				zap.Error(err))
			result.Failed = append(result.Failed, target.Email)
			continue
		}
		result.Sent = append(result.Sent, target.Email)
	}

	return result, nil
}

func (s *RetryService) resend(ctx context.Context, target RetryTarget, dryRun bool) error {
	html, err := s.archive.Read(target.ArtifactName)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	subject := fmt.Sprintf("%s - %s %s",
		s.subjectPrefix, TitleIfUpper(target.FirstName), TitleIfUpper(target.LastName))

	if dryRun {
		s.logger.Info("Dry run: would resend",
			zap.String("email", target.Email),
			zap.String("artifact", target.ArtifactName),
			zap.String("subject", subject))
		return nil
	}

	msg := &OutboundEmail{
		From:     s.from,
		To:       target.Email,
		ReplyTo:  s.from,
		Subject:  subject,
		HTMLBody: html,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}

	if s.sendLog != nil {
		rec := &SendRecord{
			MemberID: target.MemberID,
			Email:    target.Email,
			Subject:  subject,
			Provider: s.sender.Name(),
			Status:   SendStatusRetry,
			SentAt:   time.Now(),
		}
		if err := s.sendLog.Record(ctx, rec); err != nil {
			s.logger.Error("Failed to record retry outcome", zap.Error(err), zap.String("email", target.Email))
		}
	}

	s.logger.Info("Resent", zap.String("email", target.Email), zap.String("artifact", target.ArtifactName))
	return nil
}
