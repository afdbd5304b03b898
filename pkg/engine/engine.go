// Package engine defines the capability contract (spec.md section 4.4)
// shared by the core log-structured engine and the third-party-adapter
// engine, and the EngineType enum used by the engine-type guard (C9) and
// the --engine CLI flag. Grounded on the Engine trait in
// _examples/original_source/src/engine.rs and the EngineType enum in
// src/lib.rs.
package engine

import (
	"fmt"
	"strings"
)

// Engine is the capability set {get, set, remove, flush} every storage
// backend must provide. Implementations are shareable across worker tasks
// and must produce the observable semantics of spec.md section 4.3:
// linearizable single-writer/many-reader access.
type Engine interface {
	// Get returns the value for key, ok=false if the key is absent.
	Get(key string) (value string, ok bool, err error)
	// Set inserts or overwrites key with value.
	Set(key, value string) error
	// Remove deletes key. It returns a kverrors KeyNotFound error if key is
	// absent.
	Remove(key string) error
	// Flush ensures all acknowledged writes are durable on stable storage.
	Flush() error
	// Close releases all resources held by the engine.
	Close() error
}

// Type names the backend an Engine was built from. Only Kvs is a full
// implementation in this repository; Sled is named only by interface per
// spec.md's scope (the adapter that wraps a third-party embedded KV library
// is an external collaborator).
type Type string

const (
	// TypeKvs is the native log-structured engine (C1-C3).
	TypeKvs Type = "kvs"
	// TypeSled names the third-party-adapter backend.
	TypeSled Type = "sled"
)

func (t Type) String() string { return string(t) }

// ParseType parses a --engine flag value / engine-mark file token into a
// Type, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeKvs):
		return TypeKvs, nil
	case string(TypeSled):
		return TypeSled, nil
	default:
		return "", fmt.Errorf("engine: unknown engine type %q", s)
	}
}
