// Package roster loads the flat-file inputs: the training export, the email
// roster, and the course reference table. It owns the member join and the
// column-name normalization so the classifier only ever sees typed records.
package roster

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/core"
)

// Training export column names.
const (
	colMemberNum         = "Member #"
	colMemberID          = "Member ID"
	colFirstName         = "First Name"
	colLastName          = "Last Name"
	colStatus            = "Status"
	colEmail             = "Email"
	colUniformInspection = "Uniform Inspection"
	colUniformExempt     = "Uniform Exempt"
)

var keyCleaner = regexp.MustCompile(`[^\w_]`)

// NormalizeKey converts an export column name into a template-friendly
// identifier: "First Name" becomes first_name, "Member #" becomes
// member_num.
func NormalizeKey(key string) string {
	k := strings.ToLower(key)
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "#", "num")
	k = strings.ReplaceAll(k, "?", "")
	k = strings.ReplaceAll(k, "/", "_")
	return keyCleaner.ReplaceAllString(k, "")
}

// Loader reads and joins the CSV inputs.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new CSV loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadCourses reads the course reference table, preserving row order.
func (l *Loader) LoadCourses(path string) ([]core.CourseDefinition, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	defs := make([]core.CourseDefinition, 0, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row["Code"])
		if code == "" {
			continue
		}
		defs = append(defs, core.CourseDefinition{
			Code:           code,
			Title:          row["Title"],
			URL:            row["URL"],
			EnrollmentCode: row["EnrollmentCode"],
		})
	}
	l.logger.Info("Loaded course definitions", zap.String("path", path), zap.Int("count", len(defs)))
	return defs, nil
}

// CourseIndex builds the code lookup the classifier consumes.
func CourseIndex(defs []core.CourseDefinition) map[string]core.CourseDefinition {
	index := make(map[string]core.CourseDefinition, len(defs))
	for _, def := range defs {
		index[def.Code] = def
	}
	return index
}

// LoadRoster reads the email roster keyed by trimmed member identifier.
func (l *Loader) LoadRoster(path string) (map[string]core.RosterEntry, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	roster := make(map[string]core.RosterEntry, len(rows))
	for _, row := range rows {
		id := strings.TrimSpace(row[colMemberID])
		if id == "" {
			continue
		}
		roster[id] = core.RosterEntry{
			MemberID:  id,
			Email:     strings.TrimSpace(row[colEmail]),
			FirstName: strings.TrimSpace(row[colFirstName]),
			LastName:  strings.TrimSpace(row[colLastName]),
		}
	}
	l.logger.Info("Loaded email roster", zap.String("path", path), zap.Int("count", len(roster)))
	return roster, nil
}

// LoadMembers reads the training export, left-joins the email roster on the
// member identifier, and types each row. Course standings are collected in
// the order of courseOrder (the course-table row order); columns with blank
// day-counts mean the course does not apply to that member.
func (l *Loader) LoadMembers(trainingPath, emailPath string, courseOrder []string) ([]core.MemberRecord, error) {
	rows, err := readRows(trainingPath)
	if err != nil {
		return nil, err
	}

	roster := map[string]core.RosterEntry{}
	if emailPath != "" {
		roster, err = l.LoadRoster(emailPath)
		if err != nil {
			return nil, err
		}
	}

	members := make([]core.MemberRecord, 0, len(rows))
	for _, row := range rows {
		member := core.MemberRecord{
			ID:        strings.TrimSpace(row[colMemberNum]),
			FirstName: strings.TrimSpace(row[colFirstName]),
			LastName:  strings.TrimSpace(row[colLastName]),
			Status:    strings.TrimSpace(row[colStatus]),
			Fields:    make(map[string]string, len(row)*2),
		}

		if entry, ok := roster[member.ID]; ok {
			member.Email = entry.Email
			row[colEmail] = entry.Email
			row[colMemberID] = entry.MemberID
		}

		for key, value := range row {
			member.Fields[key] = value
			member.Fields[NormalizeKey(key)] = value
		}

		member.UniformInspection = parseOptionalDate(row[colUniformInspection])
		member.UniformExempt = parseExemptFlag(row[colUniformExempt])

		for _, code := range courseOrder {
			raw, ok := row[code]
			if !ok {
				continue
			}
			days, ok := parseDayCount(raw)
			if !ok {
				continue
			}
			member.Courses = append(member.Courses, core.CourseStanding{
				Code:         code,
				DaysUntilDue: days,
			})
		}

		members = append(members, member)
	}

	l.logger.Info("Loaded members",
		zap.String("training", trainingPath),
		zap.String("roster", emailPath),
		zap.Int("count", len(members)))
	return members, nil
}

// Filter keeps members whose raw columns equal every criterion value.
func Filter(members []core.MemberRecord, criteria map[string]string) []core.MemberRecord {
	if len(criteria) == 0 {
		return members
	}
	var kept []core.MemberRecord
	for _, m := range members {
		match := true
		for col, want := range criteria {
			if m.Fields[col] != want {
				match = false
				break
			}
		}
		if match {
			kept = append(kept, m)
		}
	}
	return kept
}

func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewConfigurationError(path, "cannot open CSV file", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, core.NewConfigurationError(path, "cannot parse CSV file", err)
	}
	if len(records) == 0 {
		return nil, core.NewConfigurationError(path, "CSV file has no header row", nil)
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[strings.TrimSpace(name)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseDayCount accepts integers that the export serializes as floats
// ("180", "180.0"). Blank and NaN cells mean the course does not apply.
func parseDayCount(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func parseOptionalDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return nil
	}
	t, err := time.Parse(core.DateLayout, raw)
	if err != nil {
		return nil
	}
	t = core.Midnight(t)
	return &t
}

func parseExemptFlag(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "1", "1.0", "true", "TRUE", "True":
		return true
	default:
		return false
	}
}

// Describe summarizes a filter criteria map for logging.
func Describe(criteria map[string]string) string {
	parts := make([]string, 0, len(criteria))
	for col, val := range criteria {
		parts = append(parts, fmt.Sprintf("%s=%s", col, val))
	}
	return strings.Join(parts, ", ")
}
