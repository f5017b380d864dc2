package shared

import (
	"fmt"
	"time"
)

// SnapshotLockKey builds the redis key guarding one dashboard snapshot run per
// audience and minute.
func SnapshotLockKey(audience string, at time.Time) string {
	return fmt.Sprintf("warehouse:snapshot:%s:%s:lock", audience, at.UTC().Format("200601021504"))
}
