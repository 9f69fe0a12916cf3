// Package directory reads the platform's account and organization records.
// The gateway only ever reads; provisioning lives elsewhere.
package directory

import (
	"context"
	"errors"

	"mandi/pkg/roles"
)

// ErrNotFound marks a record that does not exist. Callers normalize it to the
// restrictive default (unassigned role, pending verification) rather than
// treating it as a failure.
var ErrNotFound = errors.New("directory: record not found")

// Account is the slice of a user record the gateway needs.
type Account struct {
	UID   string
	Role  roles.Role
	OrgID string
}

type AccountReader interface {
	// Account resolves the caller's account by uid. A missing record returns
	// an Account with roles.Unassigned and nil error.
	Account(ctx context.Context, uid string) (Account, error)
}

type OrgReader interface {
	// VerificationStatus returns the raw verificationStatus field of an
	// organization record, or ErrNotFound when the record is absent.
	VerificationStatus(ctx context.Context, orgID string) (string, error)
}
