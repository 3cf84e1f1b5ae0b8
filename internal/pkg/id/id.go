package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, so view IDs
// in the logs read in the order the pages were opened.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
