package monitor

import (
	"context"
	"time"

	"github.com/bioboy/slowkicker/internal/glftpd"
)

// Collector samples the online users table and identifies uploads
type Collector struct {
	source    glftpd.Source
	signaller Signaller
	root      string
	now       func() time.Time
}

// NewCollector creates a new collector
func NewCollector(source glftpd.Source, signaller Signaller, root string) *Collector {
	if signaller == nil {
		signaller = ProcessSignaller{}
	}
	return &Collector{
		source:    source,
		signaller: signaller,
		root:      root,
		now:       time.Now,
	}
}

// Collect takes a snapshot of the online users table. The returned sessions
// are copies and stay valid after the table is released.
func (c *Collector) Collect(ctx context.Context) (Snapshot, error) {
	snapshot := Snapshot{Timestamp: c.now()}

	sessions, err := c.source.Sample(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.Sessions = sessions

	return snapshot, nil
}

// IsUploading reports whether s is a live upload
func (c *Collector) IsUploading(s glftpd.Session) bool {
	return IsUploading(s, c.signaller)
}

// ResolvePath returns the root-relative path s is uploading to
func (c *Collector) ResolvePath(s glftpd.Session) (string, error) {
	return ResolvePath(c.root, s)
}
