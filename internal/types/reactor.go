package types

import (
	"net/url"
	"strings"
)

// ReactorFragment is a raw, possibly incomplete scraped unit from the reaction
// surface. Fragments are transient: they exist between harvesting and
// normalization and are never persisted as-is. Any subset of the fields may be
// populated.
type ReactorFragment struct {
	Name         string `json:"name,omitempty"`
	ProfileURL   string `json:"profile_url,omitempty"`
	TitleLine    string `json:"title_line,omitempty"`
	ReactionKind string `json:"reaction_kind,omitempty"`
}

// Confidence flags how completely a fragment parsed into a record.
type Confidence string

const (
	// ConfidenceHigh means all core fields (name, profile URL, title) resolved.
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow means only the identity fields resolved.
	ConfidenceLow Confidence = "low"
)

// ReactorRecord is the canonical output unit: one person's reaction to one post.
type ReactorRecord struct {
	Name             string     `json:"name"`
	ProfileURL       string     `json:"profile_url"`
	Title            string     `json:"title,omitempty"`
	Company          string     `json:"company,omitempty"`
	ConnectionDegree string     `json:"connection_degree,omitempty"`
	ReactionKind     string     `json:"reaction_kind,omitempty"`
	Confidence       Confidence `json:"confidence"`
}

// IdentityKey returns the stable deduplication key for this record.
// It canonicalizes the profile URL so that cosmetic variants (scheme, query
// parameters, trailing slash, host casing) of the same profile collapse to a
// single key. For member profile URLs the /in/<slug> path segment alone
// identifies the person. An empty profile URL falls back to the lowercased
// name, which is the best identity available for entries whose link was not
// captured.
func (r *ReactorRecord) IdentityKey() string {
	return CanonicalProfileKey(r.ProfileURL, r.Name)
}

// CanonicalProfileKey canonicalizes a profile URL into an identity key,
// falling back to the lowercased trimmed name when no URL is available.
func CanonicalProfileKey(profileURL, name string) string {
	if profileURL == "" {
		return strings.ToLower(strings.TrimSpace(name))
	}

	u, err := url.Parse(strings.TrimSpace(profileURL))
	if err != nil || u.Path == "" {
		return strings.ToLower(strings.TrimSpace(profileURL))
	}

	path := strings.Trim(u.Path, "/")
	// Member profiles embed the stable slug in the segment after "in".
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "in" && i+1 < len(segments) && segments[i+1] != "" {
			return "in/" + strings.ToLower(segments[i+1])
		}
	}

	host := strings.ToLower(u.Host)
	return host + "/" + strings.ToLower(path)
}
