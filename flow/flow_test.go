package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registeredSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func TestParseSimpleSequential(t *testing.T) {
	f, err := Parse("A -> B -> C", registeredSet("A", "B", "C"))
	require.NoError(t, err)
	require.Len(t, f.Stages, 3)
	assert.Equal(t, []string{"A"}, f.Stages[0].Participants)
	assert.False(t, f.Stages[0].IsParallel())
}

func TestParseParallelAndHumanStage(t *testing.T) {
	f, err := Parse("A, B -> H -> C", registeredSet("A", "B", "C"))
	require.NoError(t, err)
	require.Len(t, f.Stages, 3)
	assert.True(t, f.Stages[0].IsParallel())
	assert.True(t, f.Stages[1].IsHuman())
	assert.Equal(t, []string{"C"}, f.Stages[2].Participants)
}

func TestParseRejectsMissingArrow(t *testing.T) {
	_, err := Parse("A, B", registeredSet("A", "B"))
	require.Error(t, err)
}

func TestParseRejectsUnregisteredParticipant(t *testing.T) {
	_, err := Parse("A -> Z", registeredSet("A"))
	require.Error(t, err)
}

func TestParseRejectsDuplicateParticipant(t *testing.T) {
	_, err := Parse("A -> B -> A", registeredSet("A", "B"))
	require.Error(t, err)
}

func TestParseTrimsWhitespace(t *testing.T) {
	f, err := Parse("  A  ->  B , C  ", registeredSet("A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, f.Stages[1].Participants)
}

func TestSequentialBuildsFlowFromNames(t *testing.T) {
	assert.Equal(t, "A -> B -> C", Sequential([]string{"A", "B", "C"}))
}

func TestInsertBeforeSplicesStage(t *testing.T) {
	f, err := Parse("A -> B -> C", registeredSet("A", "B", "C"))
	require.NoError(t, err)
	spliced := f.InsertBefore("B", Stage{Participants: []string{"pre"}})
	require.Len(t, spliced.Stages, 4)
	assert.Equal(t, []string{"pre"}, spliced.Stages[1].Participants)
	assert.Equal(t, []string{"B"}, spliced.Stages[2].Participants)
	// original unmodified
	assert.Len(t, f.Stages, 3)
}
