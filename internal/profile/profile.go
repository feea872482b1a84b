// Package profile parses the authenticated user's dashboard card into a
// ClientUser during session bootstrap.
package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PiggyPlex/dogehouse/message"
)

var nonDigit = regexp.MustCompile(`\D`)

// ParseCard parses the profile card's visible text. Line layout as the
// dashboard renders it:
//
//	display name
//	@username
//	<n> followers
//	<n> following
//	bio (remaining lines)
//
// Malformed counts coerce to zero; only a card too short to carry an
// identity is an error.
func ParseCard(text string) (*message.ClientUser, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("profile: card too short: %d lines", len(lines))
	}

	u := message.ClientUser{User: message.User{
		DisplayName: strings.TrimSpace(lines[0]),
		Username:    strings.TrimPrefix(strings.TrimSpace(lines[1]), "@"),
	}}
	if u.Username == "" {
		return nil, fmt.Errorf("profile: card has no username")
	}

	if len(lines) > 2 {
		u.Followers = parseCount(lines[2])
	}
	if len(lines) > 3 {
		u.Following = parseCount(lines[3])
	}
	if len(lines) > 4 {
		u.Bio = strings.TrimSpace(strings.Join(lines[4:], "\n"))
	}

	return &u, nil
}

// parseCount extracts the number from a "1,234 followers" style line.
// Anything unparsable is zero.
func parseCount(s string) int {
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
