package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPreservesOrder(t *testing.T) {
	c, err := New("s1")
	require.NoError(t, err)

	_, err = c.Append(DefaultUserRole, "hello")
	require.NoError(t, err)
	_, err = c.Append("AgentA", "A saw: hello")
	require.NoError(t, err)
	_, err = c.Append(RoleToolExecutor, "tool ran")
	require.NoError(t, err)

	turns := c.All()
	require.Len(t, turns, 3)
	assert.Equal(t, DefaultUserRole, turns[0].Role)
	assert.Equal(t, "AgentA", turns[1].Role)
	assert.Equal(t, RoleToolExecutor, turns[2].Role)
}

func TestRenderRoundTrip(t *testing.T) {
	c, err := New("s2")
	require.NoError(t, err)
	_, _ = c.Append("Human:", "hi")
	_, _ = c.Append("Bot", "hello back")

	rendered := c.Render()
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Human:: hi", lines[0])
	assert.Equal(t, "Bot: hello back", lines[1])
}

func TestTrimsToMaxTurns(t *testing.T) {
	c, err := NewWithMax("s3", 2)
	require.NoError(t, err)
	_, _ = c.Append("A", "one")
	_, _ = c.Append("A", "two")
	_, _ = c.Append("A", "three")

	turns := c.All()
	require.Len(t, turns, 2)
	assert.Equal(t, "two", turns[0].Content)
	assert.Equal(t, "three", turns[1].Content)
}

func TestAppendRejectsEmptyRole(t *testing.T) {
	c, err := New("s4")
	require.NoError(t, err)
	_, err = c.Append("", "content")
	require.Error(t, err)
}
