package caption

// MaxHistory is the number of past captions kept
const MaxHistory = 20

// HistoryEntry records one successful caption generation
type HistoryEntry struct {
	Caption string `json:"caption"`
	Tone    Tone   `json:"tone"`
	Preview string `json:"preview"`
}

// History is ordered most-recent-first, unique by caption text and never
// longer than MaxHistory.
type History []HistoryEntry

// Add returns a new history with entry at the front. Any existing entry with
// the same caption is removed first, and the result is capped at MaxHistory.
// The receiver is not modified.
func (h History) Add(entry HistoryEntry) History {
	out := make(History, 0, min(len(h)+1, MaxHistory))
	out = append(out, entry)
	for _, e := range h {
		if len(out) == MaxHistory {
			break
		}
		if e.Caption == entry.Caption {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Truncate returns at most the first MaxHistory entries
func (h History) Truncate() History {
	if len(h) <= MaxHistory {
		return h
	}
	return h[:MaxHistory]
}

// Clone returns a copy that shares no backing array with h
func (h History) Clone() History {
	if h == nil {
		return History{}
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}
