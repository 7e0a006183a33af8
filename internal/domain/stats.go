package domain

import "strconv"

// CounterKind identifies one of the three counters of the stats line.
type CounterKind string

const (
	CounterReplies   CounterKind = "replies"
	CounterRenotes   CounterKind = "reblogs"
	CounterReactions CounterKind = "favourites"
)

// Counter is one entry of a note's stats line.
type Counter struct {
	Kind  CounterKind
	Value int
}

// Active reports whether the counter should be highlighted.
func (c Counter) Active() bool {
	return c.Value > 0
}

// Label is the displayed count. Zero renders as an empty string, not "0".
func (c Counter) Label() string {
	if c.Value <= 0 {
		return ""
	}
	return strconv.Itoa(c.Value)
}

// Stats is the stats line of a note: replies, renotes and reactions.
type Stats struct {
	NoteID    string
	Replies   Counter
	Renotes   Counter
	Reactions Counter
}

// Counters returns the counters in display order.
func (s Stats) Counters() []Counter {
	return []Counter{s.Replies, s.Renotes, s.Reactions}
}

// TotalReactions sums every value of the reaction map.
func (n Note) TotalReactions() int {
	total := 0
	for _, count := range n.Reactions {
		total += count
	}
	return total
}

// Stats derives the stats line of the note.
func (n Note) Stats() Stats {
	return Stats{
		NoteID:    n.ID,
		Replies:   Counter{Kind: CounterReplies, Value: n.RepliesCount},
		Renotes:   Counter{Kind: CounterRenotes, Value: n.RenoteCount},
		Reactions: Counter{Kind: CounterReactions, Value: n.TotalReactions()},
	}
}
