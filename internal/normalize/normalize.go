// Package normalize turns raw reactor fragments into canonical records:
// names cleaned, headlines split into title and company, duplicates collapsed
// by profile identity. Everything here is pure; the package touches no
// browser and no network, which keeps it trivially testable.
package normalize

import (
	"regexp"
	"strings"

	"github.com/jonathan/reaction-reach/internal/types"
)

// degreePattern matches connection degree badges ("1st", "2nd", "3rd+") that
// bleed into scraped name and headline text.
var degreePattern = regexp.MustCompile(`\b([123])(st|nd|rd)\+?`)

// separatorTrim strips the bullet separators LinkedIn uses between name and
// badge text.
const separatorTrim = " \t•·|,"

// Normalize converts fragments into deduplicated canonical records,
// preserving first-seen order. Duplicate identities keep the higher
// confidence record; on equal confidence the first seen wins.
func Normalize(fragments []types.ReactorFragment) []types.ReactorRecord {
	byKey := make(map[string]int)
	var records []types.ReactorRecord

	for _, f := range fragments {
		record, ok := normalizeOne(f)
		if !ok {
			continue
		}

		key := record.IdentityKey()
		if idx, seen := byKey[key]; seen {
			if rank(record.Confidence) > rank(records[idx].Confidence) {
				records[idx] = record
			}
			continue
		}
		byKey[key] = len(records)
		records = append(records, record)
	}

	return records
}

// rank orders confidence levels for duplicate resolution.
func rank(c types.Confidence) int {
	if c == types.ConfidenceHigh {
		return 1
	}
	return 0
}

// normalizeOne maps a single fragment. Fragments with no identity at all
// (no name and no profile URL) are dropped.
func normalizeOne(f types.ReactorFragment) (types.ReactorRecord, bool) {
	name, degree := splitDegree(f.Name)
	headline, headlineDegree := splitDegree(f.TitleLine)
	if degree == "" {
		degree = headlineDegree
	}
	title, company := splitHeadline(headline)

	record := types.ReactorRecord{
		Name:             name,
		ProfileURL:       strings.TrimSpace(f.ProfileURL),
		Title:            title,
		Company:          company,
		ConnectionDegree: degree,
		ReactionKind:     strings.ToLower(strings.TrimSpace(f.ReactionKind)),
	}
	if record.Name == "" && record.ProfileURL == "" {
		return record, false
	}

	record.Confidence = types.ConfidenceLow
	if record.Name != "" && record.ProfileURL != "" && record.Title != "" {
		record.Confidence = types.ConfidenceHigh
	}
	return record, true
}

// splitDegree removes a trailing connection degree badge from the text and
// returns both parts.
func splitDegree(s string) (cleaned, degree string) {
	s = strings.TrimSpace(s)
	loc := degreePattern.FindStringIndex(s)
	if loc == nil {
		return s, ""
	}
	degree = s[loc[0]:loc[1]]
	cleaned = strings.Trim(s[:loc[0]]+s[loc[1]:], separatorTrim)
	return cleaned, degree
}

// splitHeadline splits a "Role at Company" headline. Headlines without the
// connective keep the whole text as the title with no company.
func splitHeadline(s string) (title, company string) {
	s = strings.Trim(strings.TrimSpace(s), separatorTrim)
	if s == "" {
		return "", ""
	}

	parts := strings.SplitN(s, " at ", 2)
	title = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		company = strings.TrimSpace(parts[1])
	}
	return title, company
}
