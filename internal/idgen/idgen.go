// Package idgen hands out time-ordered int64 ids for reviewers and review tasks.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator yields unique ids. Each process needs its own node id.
type Generator interface {
	NewID() int64
}

type Snowflake struct {
	node *snowflake.Node
}

func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) NewID() int64 {
	return s.node.Generate().Int64()
}
