package token

import (
	"time"

	"github.com/pkg/errors"
)

// OptionSecret sets the shared signing secret.
func OptionSecret(secret string) func(*Service) error {
	return func(s *Service) error {
		s.secret = []byte(secret)
		return nil
	}
}

// OptionAlgorithm sets the HMAC signing algorithm, HS256 by default.
func OptionAlgorithm(alg string) func(*Service) error {
	return func(s *Service) error {
		if alg != "" {
			s.algorithm = alg
		}
		return nil
	}
}

// OptionTTL sets the default access and refresh lifetimes used by IssuePair.
func OptionTTL(access, refresh time.Duration) func(*Service) error {
	return func(s *Service) error {
		if access <= 0 || refresh <= 0 {
			return errors.New("token lifetimes must be positive")
		}
		s.accessTTL = access
		s.refreshTTL = refresh
		return nil
	}
}

// OptionPrincipalLookup sets the store consulted by Rotate.
func OptionPrincipalLookup(principals PrincipalLookup) func(*Service) error {
	return func(s *Service) error {
		s.principals = principals
		return nil
	}
}

// OptionClock replaces the wall clock.
func OptionClock(now func() time.Time) func(*Service) error {
	return func(s *Service) error {
		s.now = now
		return nil
	}
}
