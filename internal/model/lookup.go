package model

import (
	"context"
	"encoding/json"
)

// LookupKind enumerates the categories of remote threat-intel queries.
type LookupKind string

const (
	// LookupKindDomain queries a domain report.
	LookupKindDomain LookupKind = "domain"
	// LookupKindIP queries an IP address report.
	LookupKindIP LookupKind = "ip"
	// LookupKindFile queries a file report by hash.
	LookupKindFile LookupKind = "file"
	// LookupKindURL submits a URL for analysis.
	LookupKindURL LookupKind = "url"
)

// LookupGateway relays typed lookups to a remote threat-intel API.
type LookupGateway interface {
	Lookup(ctx context.Context, kind LookupKind, resource string) (json.RawMessage, error)
}
