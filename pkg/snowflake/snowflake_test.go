package snowflake

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewNode_Bounds(t *testing.T) {
	req := require.New(t)

	_, err := NewNode(0)
	req.NoError(err)
	_, err = NewNode(1023)
	req.NoError(err)

	_, err = NewNode(-1)
	req.Error(err)
	_, err = NewNode(1024)
	req.Error(err)
}

func Test_Generate_Strictly_Increasing(t *testing.T) {
	req := require.New(t)
	node, err := NewNode(1)
	req.NoError(err)

	prev := node.Generate()
	for i := 0; i < 10000; i++ {
		id := node.Generate()
		req.Greater(id, prev)
		prev = id
	}
}
