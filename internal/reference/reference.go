// Package reference assigns citation references to ranked segments and builds the
// conversation memo that carries them across turns.
package reference

import (
	"strconv"
	"strings"

	"github.com/hyperjump/enfance/internal/models"
	"github.com/hyperjump/enfance/pkg/utils"
)

const (
	// MemoPrefix starts the synthetic assistant turn.
	MemoPrefix = "Mémo RAG actuel : "
	// MemoSeparator joins memo entries.
	MemoSeparator = " | "
	// MaxMemoEntries is the number of highest-ranked segments summarized in the memo.
	MaxMemoEntries = 5
	// MemoSnippetRunes is the length of each memo snippet.
	MemoSnippetRunes = 160
	// MaxConversationTurns is the number of turns kept, memo included.
	MaxConversationTurns = 12
)

// Assign sets Reference on every segment, in order, and returns segments.
// Segments with a CustomID keep it; the others are numbered 1, 2, ... without counting the
// custom ones. A custom id equal to a number or to an earlier custom id gets a "-2", "-3"...
// suffix so references stay unique.
func Assign(segments []*models.RetrievedSegment) []*models.RetrievedSegment {
	used := make(map[string]struct{}, len(segments))
	n := 0
	for _, seg := range segments {
		if seg != nil && seg.CustomID == "" {
			n++
			used[strconv.Itoa(n)] = struct{}{}
		}
	}

	next := 1
	for _, seg := range segments {
		if seg == nil {
			continue
		}
		if seg.CustomID == "" {
			seg.Reference = strconv.Itoa(next)
			next++
			continue
		}
		ref := seg.CustomID
		for i := 2; ; i++ {
			if _, taken := used[ref]; !taken {
				break
			}
			ref = seg.CustomID + "-" + strconv.Itoa(i)
		}
		used[ref] = struct{}{}
		seg.Reference = ref
	}
	return segments
}

// Memo summarizes the first MaxMemoEntries referenced segments as
// "#<ref>: <label> — <snippet>" entries joined by MemoSeparator. It returns "" when there is
// nothing to summarize.
func Memo(segments []*models.RetrievedSegment) string {
	entries := make([]string, 0, MaxMemoEntries)
	for _, seg := range segments {
		if len(entries) == MaxMemoEntries {
			break
		}
		if seg == nil || seg.Reference == "" {
			continue
		}
		snippet := utils.Prefix(utils.SingleLine(seg.Text()), MemoSnippetRunes)
		entries = append(entries, "#"+seg.Reference+": "+seg.DisplayLabel()+" — "+snippet)
	}
	if len(entries) == 0 {
		return ""
	}
	return MemoPrefix + strings.Join(entries, MemoSeparator)
}

// AppendMemo returns a new conversation holding the memo as a final assistant turn, trimmed to
// the MaxConversationTurns most recent turns. The input slice is not modified.
func AppendMemo(conversation []models.ConversationTurn, segments []*models.RetrievedSegment) []models.ConversationTurn {
	out := make([]models.ConversationTurn, 0, len(conversation)+1)
	out = append(out, conversation...)
	if memo := Memo(segments); memo != "" {
		out = append(out, models.ConversationTurn{Role: models.RoleAssistant, Content: memo})
	}
	if len(out) > MaxConversationTurns {
		out = out[len(out)-MaxConversationTurns:]
	}
	return out
}
