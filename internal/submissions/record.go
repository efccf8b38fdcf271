package submissions

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/riskdesk-demo/internal/demo"
)

// Status is the review state of a stored demo request. The intake pipeline
// only writes StatusPending; the other values belong to the sales team's
// follow-up and are accepted when records are read back.
type Status string

const (
	StatusPending   Status = "pending"
	StatusContacted Status = "contacted"
	StatusScheduled Status = "scheduled"
	StatusClosed    Status = "closed"
)

// ErrStoreUnavailable wraps every failure to read or write the collection.
var ErrStoreUnavailable = errors.New("submissions: store unavailable")

// Record is an accepted demo request plus pipeline bookkeeping.
type Record struct {
	demo.Request
	ID           string    `json:"id"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	ICSGenerated bool      `json:"icsGenerated"`
	EmailSent    bool      `json:"emailSent"`
}

// Store is the durable, append-only collection of demo requests.
type Store interface {
	// Append is the intake write path.
	Append(ctx context.Context, rec *Record) (string, error)
	// List is the read side used by back-office review and exports; it
	// returns records in insertion order.
	List(ctx context.Context) ([]Record, error)
}

// document is the on-disk/in-bucket layout shared by the file and S3 stores.
type document struct {
	Requests []Record `json:"requests"`
}
