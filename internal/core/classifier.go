package core

import (
	"time"
)

// DateLayout is the month/day/year form used by the training export for
// every date field, including the extraction date.
const DateLayout = "1/2/2006"

// DueSoonWindowDays is the forward warning window: a course due within this
// many days of today (inclusive) is reported as due soon.
const DueSoonWindowDays = 365

// annualDueCourses maps the course codes whose zero day-count means "due by
// December 31 of the current year" instead of "due on the extraction date".
// Adding another annual-requirement course is a data change here, not a
// logic change.
var annualDueCourses = map[string]bool{
	"SP_100643":    true, // Suicide Prevention
	"CRA_502319":   true, // Civil Rights Awareness
	"SAPRR_502379": true, // Sexual Assault Prevention, Response, and Recovery
}

// ParseExtractionDate parses the extraction date supplied on the command
// line. A malformed value is fatal: every day-count in the export is
// relative to this date, so classifying against a guessed one would be
// meaningless.
func ParseExtractionDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, NewConfigurationError("extraction-date", "expected MM/DD/YYYY", err)
	}
	return Midnight(t), nil
}

// Midnight normalizes a timestamp to midnight UTC so day arithmetic is exact
// integer division.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the signed whole-day count from one midnight date to
// another.
func DaysBetween(from, to time.Time) int {
	return int(Midnight(to).Sub(Midnight(from)) / (24 * time.Hour))
}

// Classify computes the notification state for one member.
//
// The raw day-counts in the member record are relative to extractionDate,
// not to today: each course's actual due date is extractionDate plus the
// raw count, and the warning bucket is decided by the distance from today
// to that due date. The two dates are passed explicitly so the function
// stays a pure, clock-free transformation.
//
// Course warnings that reference a code with no definition are skipped and
// surfaced as gaps; a missing definition never aborts classification of the
// member's remaining courses.
func Classify(member MemberRecord, courses map[string]CourseDefinition, extractionDate, today time.Time) (NotificationState, []DataGap) {
	extractionDate = Midnight(extractionDate)
	today = Midnight(today)

	state := NotificationState{
		NeedsUniformInspection: needsUniformInspection(member, today),
	}
	var gaps []DataGap

	for _, standing := range member.Courses {
		if annualDueCourses[standing.Code] && standing.DaysUntilDue == 0 {
			yearEnd := time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
			def, ok := courses[standing.Code]
			if !ok {
				gaps = append(gaps, missingCourseGap(member.ID, standing.Code))
				continue
			}
			state.CoursesDueSoon = append(state.CoursesDueSoon, CourseDueSoon{
				Code:           def.Code,
				Title:          def.Title,
				URL:            def.URL,
				EnrollmentCode: def.EnrollmentCode,
				DaysUntilDue:   DaysBetween(today, yearEnd),
				DueDate:        yearEnd,
			})
			continue
		}

		dueDate := extractionDate.AddDate(0, 0, standing.DaysUntilDue)
		daysFromToday := DaysBetween(today, dueDate)

		switch {
		case daysFromToday > DueSoonWindowDays:
			// Far enough out that no warning is wanted.
		case daysFromToday >= 0:
			def, ok := courses[standing.Code]
			if !ok {
				gaps = append(gaps, missingCourseGap(member.ID, standing.Code))
				continue
			}
			state.CoursesDueSoon = append(state.CoursesDueSoon, CourseDueSoon{
				Code:           def.Code,
				Title:          def.Title,
				URL:            def.URL,
				EnrollmentCode: def.EnrollmentCode,
				DaysUntilDue:   daysFromToday,
				DueDate:        dueDate,
			})
		default:
			def, ok := courses[standing.Code]
			if !ok {
				gaps = append(gaps, missingCourseGap(member.ID, standing.Code))
				continue
			}
			state.CoursesOverdue = append(state.CoursesOverdue, CourseOverdue{
				Code:           def.Code,
				Title:          def.Title,
				URL:            def.URL,
				EnrollmentCode: def.EnrollmentCode,
				DaysOverdue:    -daysFromToday,
			})
		}
	}

	return state, gaps
}

// needsUniformInspection applies the uniform rule: exempt members never need
// one; otherwise an inspection dated before January 1 of today's year, or no
// recorded inspection at all, means a new one is due.
func needsUniformInspection(member MemberRecord, today time.Time) bool {
	if member.UniformExempt {
		return false
	}
	if member.UniformInspection == nil {
		return true
	}
	yearStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return Midnight(*member.UniformInspection).Before(yearStart)
}

func missingCourseGap(memberID, code string) DataGap {
	return DataGap{
		Kind:    GapMissingCourse,
		Subject: code,
		Detail:  "no course definition for code referenced by member " + memberID,
	}
}
