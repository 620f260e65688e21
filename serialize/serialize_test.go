package serialize_test

import (
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/snapgraph/contenthash"
	"github.com/luxfi/snapgraph/graph"
	"github.com/luxfi/snapgraph/graph/edge"
	"github.com/luxfi/snapgraph/graph/node"
	"github.com/luxfi/snapgraph/ids"
	"github.com/luxfi/snapgraph/serialize"
)

func TestMarshalUnmarshalPreservesIndicesAndHashes(t *testing.T) {
	cs := ids.New()
	s := graph.New(cs, log.NewNoOpLogger())

	schemaW := node.New(cs, node.KindContent, node.ContentAddressSchema, contenthash.Of([]byte("schema A")))
	schemaIdx := s.AddNode(schemaW)
	_, err := s.AddEdge(cs, s.RootIndex(), edge.New(cs, edge.KindContains), schemaIdx)
	require.NoError(t, err)

	id := schemaW.ID
	wantIdx, err := s.GetNodeIndexByID(id)
	require.NoError(t, err)
	wantWeight, err := s.GetNodeWeight(wantIdx)
	require.NoError(t, err)

	data, err := serialize.Marshal(s)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	restored, err := serialize.Unmarshal(data, log.NewNoOpLogger())
	require.NoError(t, err)

	require.Equal(t, s.NodeCount(), restored.NodeCount())
	require.Equal(t, s.EdgeCount(), restored.EdgeCount())
	require.Equal(t, s.RootIndex(), restored.RootIndex())

	gotIdx, err := restored.GetNodeIndexByID(id)
	require.NoError(t, err)
	require.Equal(t, wantIdx, gotIdx)

	gotWeight, err := restored.GetNodeWeight(gotIdx)
	require.NoError(t, err)
	require.Equal(t, wantWeight.MerkleTreeHash, gotWeight.MerkleTreeHash)
	require.Equal(t, wantWeight.ContentHash, gotWeight.ContentHash)
	require.Equal(t, wantWeight.LineageID, gotWeight.LineageID)

	rootWeight, err := restored.GetNodeWeight(restored.RootIndex())
	require.NoError(t, err)
	require.False(t, rootWeight.MerkleTreeHash.IsZero())
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := serialize.Unmarshal([]byte{0xff, 0x00, 0x01}, nil)
	require.ErrorIs(t, err, serialize.ErrDecode)
}
