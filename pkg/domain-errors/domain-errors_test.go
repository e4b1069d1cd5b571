package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "ticket not found"}
		s.Equal("ticket not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeDuplicate}
		s.Equal("duplicate_checkin", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("database connection failed")
		err := &Error{Code: CodeInternal, Message: "service error", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeNotFound, Message: "not found"}
		s.Nil(err.Unwrap())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeCredentialRejected, Message: "bad signature"}
		err2 := &Error{Code: CodeCredentialRejected, Message: "unknown nonce"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeDuplicate}
		err2 := &Error{Code: CodeCredentialRejected}
		s.False(err1.Is(err2))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	inner := New(CodeConflict, "attendee already registered")
	wrapped := Wrap(inner, CodeInternal, "registration failed")

	s.True(HasCode(wrapped, CodeConflict), "wrapping must not overwrite the original domain code")
	s.Equal("registration failed", wrapped.Error())
}

func (s *DomainErrorsSuite) TestWrapPlainError() {
	inner := errors.New("dial tcp: connection refused")
	wrapped := Wrap(inner, CodeUnavailable, "ledger unreachable")

	s.True(HasCode(wrapped, CodeUnavailable))
	s.True(errors.Is(wrapped, inner))
}
