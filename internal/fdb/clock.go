package fdb

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
// Snapshot names and blob archive names derive from Clock output.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
// IDs label history records and correlate log lines for one invocation.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// StampFormat is the layout for timestamp tokens embedded in snapshot and
// blob archive names. Nanosecond precision keeps names produced within one
// session distinct.
const StampFormat = "20060102T150405.000000000"

// Stamp formats t as a UTC timestamp token.
func Stamp(t time.Time) string {
	return t.UTC().Format(StampFormat)
}
