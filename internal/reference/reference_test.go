package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/enfance/internal/models"
)

func refs(segs []*models.RetrievedSegment) []string {
	out := make([]string, len(segs))
	for i, s := range segs {
		out[i] = s.Reference
	}
	return out
}

func TestAssign(t *testing.T) {
	segs := Assign([]*models.RetrievedSegment{
		{CustomID: "U"},
		{Label: "a"},
		{Label: "b"},
		{Label: "c"},
	})
	assert.Equal(t, []string{"U", "1", "2", "3"}, refs(segs))
}

func TestAssign_CounterIgnoresCustomIDs(t *testing.T) {
	segs := Assign([]*models.RetrievedSegment{
		{Label: "a"},
		{CustomID: "U"},
		{Label: "b"},
	})
	assert.Equal(t, []string{"1", "U", "2"}, refs(segs))
}

func TestAssign_Unique(t *testing.T) {
	segs := Assign([]*models.RetrievedSegment{
		{CustomID: "2"},
		{Label: "a"},
		{Label: "b"},
		{CustomID: "U"},
		{CustomID: "U"},
		{CustomID: "2"},
	})
	got := refs(segs)
	seen := make(map[string]bool)
	for _, r := range got {
		require.False(t, seen[r], "duplicate reference %q in %v", r, got)
		seen[r] = true
	}
	assert.Equal(t, []string{"2-2", "1", "2", "U", "U-2", "2-3"}, got)
}

func TestMemo(t *testing.T) {
	long := strings.Repeat("é", 200)
	segs := Assign([]*models.RetrievedSegment{
		{Label: "Tarifs", Content: "Repas\n3,20 €"},
		{Content: long},
	})
	memo := Memo(segs)
	assert.True(t, strings.HasPrefix(memo, MemoPrefix))
	assert.Contains(t, memo, "#1: Tarifs — Repas 3,20 €")
	assert.Contains(t, memo, "#2: Segment — "+strings.Repeat("é", MemoSnippetRunes))
	assert.NotContains(t, memo, strings.Repeat("é", MemoSnippetRunes+1))
	assert.Equal(t, 1, strings.Count(memo, MemoSeparator))
}

func TestMemo_MaxEntries(t *testing.T) {
	segs := make([]*models.RetrievedSegment, 8)
	for i := range segs {
		segs[i] = &models.RetrievedSegment{Content: "x"}
	}
	memo := Memo(Assign(segs))
	assert.Equal(t, MaxMemoEntries-1, strings.Count(memo, MemoSeparator))
	assert.NotContains(t, memo, "#6:")
	assert.Empty(t, Memo(nil))
}

func TestAppendMemo(t *testing.T) {
	conversation := make([]models.ConversationTurn, 15)
	for i := range conversation {
		conversation[i] = models.ConversationTurn{Role: models.RoleUser, Content: string(rune('a' + i))}
	}
	segs := Assign([]*models.RetrievedSegment{{Label: "Crèches", Content: "Horaires"}})

	out := AppendMemo(conversation, segs)
	require.Len(t, out, MaxConversationTurns)
	last := out[len(out)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, MemoPrefix))
	assert.Equal(t, "e", out[0].Content)
	assert.Len(t, conversation, 15, "input is not modified")

	noMemo := AppendMemo(conversation[:2], nil)
	assert.Len(t, noMemo, 2)
}
