package domain_test

import (
	"testing"

	"misskey-comments/internal/domain"
)

func TestNote_Stats_SumsReactions(t *testing.T) {
	// Arrange
	note := domain.Note{
		ID:        "n1",
		Reactions: map[string]int{"👍": 3, "❤": 2},
	}

	// Act
	stats := note.Stats()

	// Assert
	if stats.Reactions.Value != 5 {
		t.Errorf("Reactions: got %v, want 5", stats.Reactions.Value)
	}
	if !stats.Reactions.Active() {
		t.Error("Reactions should be active")
	}
	if stats.Reactions.Label() != "5" {
		t.Errorf("Label: got %q, want %q", stats.Reactions.Label(), "5")
	}
}

func TestNote_Stats_ZeroCounters_AreInactiveAndBlank(t *testing.T) {
	// Arrange
	note := domain.Note{
		ID:           "n1",
		RepliesCount: 0,
		RenoteCount:  0,
		Reactions:    map[string]int{},
	}

	// Act
	stats := note.Stats()

	// Assert
	for _, c := range stats.Counters() {
		if c.Active() {
			t.Errorf("%s: should be inactive", c.Kind)
		}
		if c.Label() != "" {
			t.Errorf("%s: label got %q, want empty", c.Kind, c.Label())
		}
	}
}

func TestNote_Stats_NilReactions(t *testing.T) {
	note := domain.Note{ID: "n1", RepliesCount: 4, RenoteCount: 1}

	stats := note.Stats()

	if stats.Reactions.Value != 0 || stats.Reactions.Active() {
		t.Errorf("nil reactions should be zero and inactive, got %+v", stats.Reactions)
	}
	if stats.Replies.Label() != "4" || !stats.Replies.Active() {
		t.Errorf("replies: got %+v", stats.Replies)
	}
	if stats.Renotes.Label() != "1" || !stats.Renotes.Active() {
		t.Errorf("renotes: got %+v", stats.Renotes)
	}
}

func TestStats_Counters_DisplayOrder(t *testing.T) {
	stats := domain.Note{ID: "n1"}.Stats()

	got := stats.Counters()

	want := []domain.CounterKind{domain.CounterReplies, domain.CounterRenotes, domain.CounterReactions}
	for i, c := range got {
		if c.Kind != want[i] {
			t.Errorf("counter %d: got %v, want %v", i, c.Kind, want[i])
		}
	}
}
