package render

import (
	"fmt"
	"time"

	"github.com/auxct/auxmailer/internal/core"
)

// DisplayDateLayout is the MM/DD/YYYY form dates take inside rendered
// messages.
const DisplayDateLayout = "01/02/2006"

// certifiedStatus is the status marker that selects the affirmative
// messaging branch.
const certifiedStatus = "Certified"

// BuildContext binds a member record and its notification state into the
// template variable map. Variable names are a contract with the template
// files; renaming one here breaks every deployed template.
func BuildContext(member core.MemberRecord, state core.NotificationState, extractionDate, today time.Time) map[string]any {
	extractionDate = core.Midnight(extractionDate)
	today = core.Midnight(today)

	ctx := make(map[string]any, len(member.Fields)+24)
	for key, value := range member.Fields {
		ctx[key] = value
	}

	ctx["member_id"] = member.ID
	ctx["member_num"] = member.ID
	ctx["first_name"] = member.FirstName
	ctx["last_name"] = member.LastName
	ctx["email"] = member.Email
	ctx["status"] = member.Status
	ctx["first_name_titlecase"] = core.TitleIfUpper(member.FirstName)

	ctx["current_year"] = today.Year()
	ctx["current_year_start"] = fmt.Sprintf("1/1/%d", today.Year())
	ctx["current_year_end"] = fmt.Sprintf("12/31/%d", today.Year())
	ctx["extraction_date"] = extractionDate.Format(DisplayDateLayout)
	ctx["extraction_plus_365"] = extractionDate.AddDate(0, 0, 365).Format(DisplayDateLayout)

	if member.UniformInspection != nil {
		ctx["uniform_inspection"] = member.UniformInspection.Format(DisplayDateLayout)
	} else {
		ctx["uniform_inspection"] = ""
	}
	ctx["uniform_exempt"] = member.UniformExempt
	ctx["needs_uniform_inspection"] = state.NeedsUniformInspection

	overdue := make([]map[string]any, 0, len(state.CoursesOverdue))
	for _, c := range state.CoursesOverdue {
		overdue = append(overdue, map[string]any{
			"code":            c.Code,
			"title":           c.Title,
			"url":             c.URL,
			"enrollment_code": c.EnrollmentCode,
			"days_overdue":    c.DaysOverdue,
		})
	}
	dueSoon := make([]map[string]any, 0, len(state.CoursesDueSoon))
	for _, c := range state.CoursesDueSoon {
		dueSoon = append(dueSoon, map[string]any{
			"code":            c.Code,
			"title":           c.Title,
			"url":             c.URL,
			"enrollment_code": c.EnrollmentCode,
			"days_until_due":  c.DaysUntilDue,
			"due_date":        c.DueDate.Format(DisplayDateLayout),
		})
	}
	ctx["courses_overdue"] = overdue
	ctx["courses_due_soon"] = dueSoon
	ctx["has_overdue_courses"] = len(overdue) > 0
	ctx["has_due_soon_courses"] = len(dueSoon) > 0

	// Status-message branch: certified members with nothing due get the
	// affirmative message (valid through extraction date + 365); certified
	// members with due courses get neither; anyone else gets the
	// action-required message.
	isCertified := member.Status == certifiedStatus
	ctx["is_certified"] = isCertified
	ctx["all_current"] = isCertified && !state.HasWarnings()
	ctx["action_required"] = !isCertified

	return ctx
}
