package cobweb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextualIfitBasic(t *testing.T) {
	tree := New(DefaultConfig())
	instances := []Instance{
		{"word": "the"},
		{"word": "cat"},
		{"word": "sat"},
		{"word": "on"},
		{"word": "the"},
		{"word": "mat"},
	}

	leaves, err := tree.ContextualIfitWithContext(context.Background(), instances, 2, SymmetricWindow)
	require.NoError(t, err)
	require.Len(t, leaves, len(instances))
	for _, leaf := range leaves {
		require.NotNil(t, leaf)
	}
	require.Greater(t, tree.root.Count(), 0)
}

func TestContextualIfitRejectsBadContextKey(t *testing.T) {
	tree := New(DefaultConfig())
	_, err := tree.ContextualIfitWithContext(context.Background(), []Instance{{"a": "b"}}, 2, PastWindow)
	require.ErrorIs(t, err, ErrInvalidContextKey)
}

func TestContextualIfitRejectsNonPositiveContextSize(t *testing.T) {
	tree := New(DefaultConfig())
	_, err := tree.ContextualIfitWithContext(context.Background(), []Instance{{"a": "b"}}, 0, SymmetricWindow)
	require.ErrorIs(t, err, ErrNonPositiveContextSize)
}

func TestClearResetsTree(t *testing.T) {
	tree := New(DefaultConfig())
	_, err := tree.ContextualIfit(context.Background(), []Instance{{"a": "b"}, {"a": "c"}})
	require.NoError(t, err)
	require.Greater(t, tree.root.Count(), 0)

	tree.Clear()
	require.Equal(t, 0, tree.root.Count())
	require.True(t, tree.root.IsLeaf())
}

func TestInferFromContext(t *testing.T) {
	tree := New(DefaultConfig())
	instances := []Instance{
		{"word": "the", AnchorAttr: "DET"},
		{"word": "cat", AnchorAttr: "NOUN"},
		{"word": "sat", AnchorAttr: "VERB"},
		{"word": "on", AnchorAttr: "PREP"},
		{"word": "the", AnchorAttr: "DET"},
		{"word": "mat", AnchorAttr: "NOUN"},
	}
	_, err := tree.ContextualIfitWithContext(context.Background(), instances, 2, SymmetricWindow)
	require.NoError(t, err)

	query := []Instance{
		{"word": "the", AnchorAttr: "DET"},
		{"word": "cat", AnchorAttr: "NOUN"},
		nil,
		{"word": "on", AnchorAttr: "PREP"},
		{"word": "the", AnchorAttr: "DET"},
	}
	_, err = tree.InferFromContext(context.Background(), query, 2)
	require.NoError(t, err)
}

func TestInferFromContextRequiresAnchor(t *testing.T) {
	tree := New(DefaultConfig())
	_, err := tree.InferFromContext(context.Background(), []Instance{{"a": "b"}, {"a": "c"}}, 1)
	require.ErrorIs(t, err, ErrMissingAnchor)
}

func TestInferFromContextRequiresTwoInstances(t *testing.T) {
	tree := New(DefaultConfig())
	_, err := tree.InferFromContext(context.Background(), []Instance{nil}, 1)
	require.ErrorIs(t, err, ErrEmptyInferenceInput)
}

func TestContextualIfitCancellation(t *testing.T) {
	tree := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	leaves, err := tree.ContextualIfitWithContext(ctx, []Instance{{"a": "b"}, {"a": "c"}, {"a": "d"}}, 1, SymmetricWindow)
	require.NoError(t, err)
	require.Empty(t, leaves)
}
