package service

import (
	"fmt"
	"net/url"

	"github.com/classtrack/classtrack-api/pkg/config"
)

// LinkBuilder produces the shareable attendance URL for a session. The origin
// comes from the inbound request (forwarded headers included) so links survive
// across environments; PUBLIC_BASE_URL overrides it when set.
type LinkBuilder struct {
	publicBaseURL string
}

// NewLinkBuilder constructs a link builder from config.
func NewLinkBuilder(cfg config.LinkConfig) *LinkBuilder {
	return &LinkBuilder{publicBaseURL: cfg.PublicBaseURL}
}

// AttendanceLink returns {origin}/attendance/{sessionID}?token={secureToken}.
// The token also travels inside the session payload, so validators accept it
// from either the query string or the request body.
func (b *LinkBuilder) AttendanceLink(requestOrigin, sessionID, secureToken string) string {
	origin := b.publicBaseURL
	if origin == "" {
		origin = requestOrigin
	}
	return fmt.Sprintf("%s/attendance/%s?token=%s", origin, url.PathEscape(sessionID), url.QueryEscape(secureToken))
}
