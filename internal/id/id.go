// Package id generates identifiers for builds and requests.
package id

import "github.com/google/uuid"

// New returns a UUIDv7 string so IDs sort by creation time. It falls back to
// a random v4 if the clock sequence cannot be read.
func New() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
