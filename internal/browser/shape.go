package browser

import "strings"

// SurfaceShape classifies what kind of page the substrate is currently on.
// Every navigation is followed by a shape check so that the navigator can
// tell an expected surface from a login wall or a challenge page.
type SurfaceShape string

const (
	// ShapeProfile is a member profile page.
	ShapeProfile SurfaceShape = "profile"
	// ShapeActivityFeed is a profile's recent-activity feed.
	ShapeActivityFeed SurfaceShape = "activity_feed"
	// ShapePost is a single post permalink.
	ShapePost SurfaceShape = "post"
	// ShapeFeed is the authenticated home feed, used as the validation probe target.
	ShapeFeed SurfaceShape = "feed"
	// ShapeLogin is the login or authwall surface: the session is unauthenticated.
	ShapeLogin SurfaceShape = "login"
	// ShapeChallenge is a checkpoint/challenge surface: a detection signal.
	ShapeChallenge SurfaceShape = "challenge"
	// ShapeBlocked is an explicit block or rate-limit page: a detection signal.
	ShapeBlocked SurfaceShape = "blocked"
	// ShapeUnknown is anything that matched no known surface.
	ShapeUnknown SurfaceShape = "unknown"
)

// IsDetectionSignal reports whether the shape indicates anti-automation
// measures. Detection signals are terminal for the session.
func (s SurfaceShape) IsDetectionSignal() bool {
	return s == ShapeChallenge || s == ShapeBlocked
}

// ClassifySurface maps a post-navigation location and page content onto a
// surface shape. Location wins over content: redirects to login or challenge
// surfaces are the primary signals the source UI emits.
func ClassifySurface(location, content string) SurfaceShape {
	loc := strings.ToLower(location)

	switch {
	case strings.Contains(loc, "/checkpoint/"), strings.Contains(loc, "/challenge"):
		return ShapeChallenge
	case strings.Contains(loc, "/authwall"), strings.Contains(loc, "/login"), strings.Contains(loc, "/uas/"):
		return ShapeLogin
	case strings.Contains(loc, "/recent-activity"):
		return ShapeActivityFeed
	case strings.Contains(loc, "/feed/update/"), strings.Contains(loc, "/posts/"):
		return ShapePost
	case strings.Contains(loc, "/feed"):
		return ShapeFeed
	case strings.Contains(loc, "/in/"):
		return ShapeProfile
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "unusual activity"), strings.Contains(lower, "access to this page has been denied"):
		return ShapeBlocked
	case strings.Contains(lower, "security verification"), strings.Contains(lower, "quick security check"):
		return ShapeChallenge
	case strings.Contains(lower, "sign in") && strings.Contains(lower, "password"):
		return ShapeLogin
	}

	return ShapeUnknown
}
