package models

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// Key collision attacks could allow attackers to manipulate rate limit
// buckets by crafting identities containing delimiter characters.

type KeySecuritySuite struct {
	suite.Suite
}

func TestKeySecuritySuite(t *testing.T) {
	suite.Run(t, new(KeySecuritySuite))
}

func (s *KeySecuritySuite) TestKeyCollisionAttack() {
	s.Run("colon in identity is escaped to prevent bucket crossover", func() {
		key := Key{Route: "sign-in-send-otp", Identity: "user:admin@inpe.br", ClientIP: "203.0.113.9"}

		s.NotContains(key.String(), "user:admin")
		s.Contains(key.String(), "user_cadmin")
	})

	s.Run("distinct inputs never collide", func() {
		a := Key{Route: "r", Identity: "user_:x", ClientIP: "ip"}
		b := Key{Route: "r", Identity: "user:_x", ClientIP: "ip"}

		s.NotEqual(a.String(), b.String())
	})

	s.Run("ipv6 addresses with colons are escaped", func() {
		key := Key{Route: "r", Identity: "unknown", ClientIP: "2001:db8::1"}

		s.NotContains(key.String(), "2001:db8")
		s.Contains(key.String(), "2001_cdb8_c_c1")
	})

	s.Run("legitimate keys keep their readable shape", func() {
		key := Key{Route: "sign-up-verify-otp-lockout", Identity: "user@inpe.br", ClientIP: "10.0.0.1"}

		s.Equal("sign-up-verify-otp-lockout:user@inpe.br:10.0.0.1", key.String())
	})
}

func (s *KeySecuritySuite) TestSanitizeRoundTripUniqueness() {
	inputs := []string{"a:b", "a_b", "a_:b", "a:_b", "a__b", "a_cb"}
	seen := make(map[string]string)
	for _, in := range inputs {
		out := SanitizeKeySegment(in)
		prev, dup := seen[out]
		s.False(dup, "inputs %q and %q collide on %q", in, prev, out)
		seen[out] = in
	}
}
