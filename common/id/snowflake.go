// Package id hands out time-ordered int64 identifiers. Every binary calls
// Init once with its own node id so ids never collide between the API server
// and the sweeper, even when both insert rows at the same instant.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Node ids per binary. New binaries claim the next free value.
const (
	NodeServer  = 1
	NodeSweeper = 2
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init creates the process-wide generator. Repeated calls are no-ops; the
// first node id wins.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns the next id. Panics if Init was never called, which is a
// programming error rather than a runtime condition.
func New() int64 {
	return node.Generate().Int64()
}
