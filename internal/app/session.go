package app

import "notiplay/internal/domain"

// Session identifies the caller. It is built once per request by the transport from
// the identity provider's token and passed explicitly to every flow.
type Session struct {
	UserID string
}

// Anonymous is a session without a signed-in user.
func Anonymous() Session {
	return Session{}
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

func (s Session) require() error {
	if !s.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}
