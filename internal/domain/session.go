package domain

// Session is an authenticated session issued by the password gate.
type Session struct {
	Token     string // opaque base58 token
	CreatedAt int64  // Unix seconds
	ExpiresAt int64  // Unix seconds
}

// Expired reports whether the session is past its expiry at the given
// Unix-seconds instant.
func (s *Session) Expired(now int64) bool {
	return now >= s.ExpiresAt
}
