package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseArtifactName decodes an archived artifact filename of the form
// {member_id}_{FIRST}_{LAST}.ext, splitting on the first two underscores so
// a last name may itself contain underscores. The parse is fallible by
// design: archive directories accumulate strays, and a bad name must become
// a gap, not a crash.
func ParseArtifactName(name string) (ArtifactInfo, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ArtifactInfo{}, fmt.Errorf("artifact name %q does not match {member_id}_{first}_{last}", name)
	}
	return ArtifactInfo{
		Name:      name,
		MemberID:  parts[0],
		FirstName: parts[1],
		LastName:  parts[2],
	}, nil
}

// Correlate matches provider-reported delivery failures to archived
// artifacts and roster addresses.
//
// Failures older than startTime are dropped when startTime is non-nil.
// Duplicate addresses (the same recipient reported under several
// categories) collapse to the first-seen failure. A failure matches an
// artifact when the artifact's decoded member identifier resolves through
// the roster to the failure's address, compared case-insensitively.
//
// Correlate performs no I/O; the caller decides what to do with the
// resulting targets. Everything that did not line up is accounted for in
// the report: failures with no artifact, artifacts with no failure, and
// decode/roster gaps.
func Correlate(failures []DeliveryFailure, artifacts []string, roster map[string]RosterEntry, startTime *int64) ([]RetryTarget, CorrelationReport) {
	var report CorrelationReport

	// Filter and dedup by address, first seen wins.
	seen := make(map[string]bool)
	var considered []DeliveryFailure
	for _, f := range failures {
		if startTime != nil && f.Timestamp < *startTime {
			continue
		}
		addr := strings.ToLower(strings.TrimSpace(f.Email))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		f.Email = addr
		considered = append(considered, f)
	}
	report.TotalFailures = len(considered)

	// Index artifacts by the roster address their member identifier
	// resolves to.
	type parsedArtifact struct {
		info  ArtifactInfo
		entry RosterEntry
	}
	byAddress := make(map[string][]parsedArtifact)
	var resolvable []parsedArtifact
	for _, name := range artifacts {
		info, err := ParseArtifactName(name)
		if err != nil {
			report.Gaps = append(report.Gaps, DataGap{
				Kind:    GapUnparsableArtifact,
				Subject: name,
				Detail:  err.Error(),
			})
			continue
		}
		entry, ok := roster[info.MemberID]
		if !ok {
			report.Gaps = append(report.Gaps, DataGap{
				Kind:    GapUnknownMember,
				Subject: info.MemberID,
				Detail:  "artifact " + name + " has no roster entry",
			})
			continue
		}
		pa := parsedArtifact{info: info, entry: entry}
		addr := strings.ToLower(strings.TrimSpace(entry.Email))
		byAddress[addr] = append(byAddress[addr], pa)
		resolvable = append(resolvable, pa)
	}

	matchedArtifacts := make(map[string]bool)
	var targets []RetryTarget
	for _, f := range considered {
		matches := byAddress[f.Email]
		if len(matches) == 0 {
			report.UnmatchedFailures = append(report.UnmatchedFailures, f.Email)
			continue
		}
		report.Matched++
		for _, m := range matches {
			matchedArtifacts[m.info.Name] = true
			targets = append(targets, retryTarget(m.info, m.entry))
		}
	}

	for _, pa := range resolvable {
		if !matchedArtifacts[pa.info.Name] {
			report.UnmatchedArtifacts = append(report.UnmatchedArtifacts, pa.info.Name)
		}
	}

	return targets, report
}

// retryTarget prefers roster names over filename names: the roster carries
// the member's real casing, the filename only an uppercased approximation.
func retryTarget(info ArtifactInfo, entry RosterEntry) RetryTarget {
	t := RetryTarget{
		ArtifactName: info.Name,
		MemberID:     info.MemberID,
		FirstName:    entry.FirstName,
		LastName:     entry.LastName,
		Email:        strings.ToLower(strings.TrimSpace(entry.Email)),
	}
	if t.FirstName == "" {
		t.FirstName = info.FirstName
	}
	if t.LastName == "" {
		t.LastName = info.LastName
	}
	return t
}
