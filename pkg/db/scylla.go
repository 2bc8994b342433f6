// Package db holds the ScyllaDB session setup shared by the server and the
// schema scripts.
package db

import (
	"time"

	"github.com/gocql/gocql"
)

type Session struct {
	*gocql.Session
}

// NewSession connects to the cluster with quorum consistency and a bounded
// exponential retry policy.
func NewSession(hosts []string, keyspace string) (*Session, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}
	return &Session{Session: session}, nil
}
