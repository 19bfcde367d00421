package publisher

import (
	"context"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/model"
)

// Publisher defines the interface for publishing registry audit records to a
// message broker.
type Publisher interface {
	// Connect establishes a connection with the message broker
	Connect(ctx context.Context) error

	// Close closes the connection to the message broker
	Close() error

	// PublishRecord publishes one audit record to the message broker
	PublishRecord(ctx context.Context, record *model.AuditRecord) error

	// PublishRecords publishes multiple audit records in batch to the message broker
	PublishRecords(ctx context.Context, records []*model.AuditRecord) error
}
