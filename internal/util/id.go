// Package util holds small cross-package helpers.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random hex id with an optional type prefix.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewDocID mints a document id ("doc_...").
func NewDocID() string {
	return NewID("doc")
}

// NewOutputID mints an AI output block id ("ai_..."). Block ids only need to
// be unique within one document, but sharing the global namespace keeps them
// greppable across logs and snapshots.
func NewOutputID() string {
	return NewID("ai")
}
