// Package xid generates record identifiers that sort by creation time.
package xid

import "github.com/google/uuid"

// New returns "<prefix>_<uuid v7>". Ids from one process sort in creation
// order.
func New(prefix string) string {
	return prefix + "_" + uuid.Must(uuid.NewV7()).String()
}
