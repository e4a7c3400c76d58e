// Package iyp reads internet-topology facts from an Internet Yellow
// Pages (IYP) Neo4j instance.
//
// All reads go through the Executor interface so the analysis code can
// be unit-tested against a fake, and so results can be cached
// transparently. The concrete Client talks Bolt to a real instance.
package iyp

import (
	"context"
	"fmt"
)

// Result is the shape every query returns: column keys plus rows of
// driver-decoded values.
type Result struct {
	Keys []string
	Rows [][]any
}

// Executor runs one parameterized read-only query.
type Executor interface {
	Execute(ctx context.Context, cypher string, params map[string]any) (*Result, error)
}

// DataSourceError wraps any failure to reach the knowledge graph or to
// decode what it returned. It is scoped to one region: the caller skips
// that region and keeps going.
type DataSourceError struct {
	Region string
	Op     string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("iyp: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("iyp: %s (region %s): %v", e.Op, e.Region, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// MembershipEdge is one observed (exchange, AS) membership.
type MembershipEdge struct {
	IXPName    string
	ASN        int64
	IXPCountry string // hosting country code; empty when unknown
	Source     string // dataset that reported the membership
}

// ASMembershipCount is one AS and the number of distinct exchanges it
// is a member of. NumIXPs of zero means the AS peers nowhere.
type ASMembershipCount struct {
	ASN     int64
	NumIXPs int
}

// Slice selects which population of ASes a membership query covers.
type Slice string

const (
	SliceAll           Slice = "all"
	SliceTransit       Slice = "transit"
	SliceEyeball       Slice = "eyeball"
	SliceContent       Slice = "content"
	SliceInternational Slice = "international"
)

// Slices lists every selector in report order.
var Slices = []Slice{SliceAll, SliceTransit, SliceEyeball, SliceContent, SliceInternational}

// Valid reports whether s names a known slice.
func (s Slice) Valid() bool {
	switch s {
	case SliceAll, SliceTransit, SliceEyeball, SliceContent, SliceInternational:
		return true
	}
	return false
}
