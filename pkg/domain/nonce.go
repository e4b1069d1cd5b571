package domain

// Nonce is the single-use unguessable value binding a credential to the
// current state of one check-in record. It is rotated on consumption, which
// is what voids previously issued credential artifacts for that record.
//
// Generation lives in internal/credential so this package stays free of
// crypto dependencies; a Nonce here is just an opaque, comparable value.
type Nonce string

func (n Nonce) String() string { return string(n) }

func (n Nonce) IsNil() bool { return n == "" }
