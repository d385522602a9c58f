// Package store persists performance and security snapshots.
//
// Two namespaces exist per snapshot kind: history (append-only, timestamped
// records) and baselines (one current record per name, overwritten on save).
// The store assumes a single writer per storage root at a time; CI invokes
// one pipewatch process per job, which is the expected usage. This is an
// assumption, not an enforced guarantee.
package store

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformedSnapshot marks a snapshot file that exists but cannot be
// decoded. Explicit single-file loads surface it; history listings skip the
// file with a warning instead.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeName makes a snapshot or baseline name safe to use as a filename
// component.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "default"
	}
	return unsafeNameChars.ReplaceAllString(name, "_")
}
