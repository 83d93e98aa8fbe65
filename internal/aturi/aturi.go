// Package aturi parses and formats the three-part remote identity
// references used by the record store.
package aturi

import (
	"fmt"
	"strings"
)

const scheme = "at://"

// URI is a parsed at:// identity: authority, collection, record key.
type URI struct {
	Authority  string
	Collection string
	RKey       string
}

// Parse validates and splits an at:// reference. Exactly three non-empty
// segments are required; any other shape is an explicit error.
func Parse(s string) (URI, error) {
	if !strings.HasPrefix(s, scheme) {
		return URI{}, fmt.Errorf("aturi: missing at:// scheme in %q", s)
	}
	parts := strings.Split(strings.TrimPrefix(s, scheme), "/")
	if len(parts) != 3 {
		return URI{}, fmt.Errorf("aturi: expected authority/collection/rkey in %q", s)
	}
	for _, p := range parts {
		if p == "" {
			return URI{}, fmt.Errorf("aturi: empty segment in %q", s)
		}
	}
	return URI{Authority: parts[0], Collection: parts[1], RKey: parts[2]}, nil
}

// String formats the URI back to its at:// form.
func (u URI) String() string {
	return scheme + u.Authority + "/" + u.Collection + "/" + u.RKey
}

// WithCollection returns the paired reference in another collection: same
// authority and record key, different namespace.
func (u URI) WithCollection(collection string) URI {
	u.Collection = collection
	return u
}

// IsZero reports whether the URI is unset.
func (u URI) IsZero() bool {
	return u == URI{}
}
