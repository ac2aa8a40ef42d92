package reaper

import (
	"context"

	"github.com/opstools/snapreaper/internal/models"
)

// SessionProvider abstracts cluster session establishment for testability.
type SessionProvider interface {
	Connect(ctx context.Context, cluster string) (Session, error)
}

// Session is one open connection to a cluster. Implementations must be safe
// to Close after any partial failure; the reaper closes every session it
// opens, on every exit path.
type Session interface {
	// ListVMs enumerates VMs on the cluster. When tags is non-empty, only
	// VMs carrying at least one of the tags are returned.
	ListVMs(ctx context.Context, tags []string) ([]models.VM, error)
	// Snapshots returns the VM's snapshot set flattened to a list, in
	// discovery order.
	Snapshots(ctx context.Context, vm models.VM) ([]models.Snapshot, error)
	// DeleteSnapshot removes a single snapshot without touching its children.
	DeleteSnapshot(ctx context.Context, vm models.VM, snap models.Snapshot) error
	Close(ctx context.Context) error
}

// MailSender abstracts report delivery for testability.
type MailSender interface {
	Send(subject, body string, recipients []string) error
}
