package remote

import (
	"context"

	"moneymate/internal/core"
)

// Ports for the remote store and the session collaborator.
type (
	// Store is the remote transaction store at the other end of the
	// sync protocol.
	Store interface {
		// Submit persists one transaction. Errors are classified: see
		// ErrAuth, ErrTransient and ErrValidation.
		Submit(ctx context.Context, tx core.Transaction) error

		// List returns the authoritative transaction set for the
		// current session.
		List(ctx context.Context) ([]core.Transaction, error)
	}

	// Session is the session-management collaborator. The core checks
	// it before submitting and signals it on an auth fault; it never
	// implements login itself.
	Session interface {
		// Check returns an error when no usable session exists.
		Check(ctx context.Context) error

		// RequireReauth tells the collaborator the remote store
		// rejected the session and the user must authenticate again.
		RequireReauth()
	}
)
