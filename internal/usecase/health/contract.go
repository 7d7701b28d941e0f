package health

import "context"

// CachePinger checks the key-value cache connection.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// DBPinger checks the relational store connection.
type DBPinger interface {
	Ping(ctx context.Context) error
}
