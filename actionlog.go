package versync

import (
	"sort"
)

// ActionTag opens every action inside a set or mapping diff.
type ActionTag int

const (
	ActAdd ActionTag = iota
	ActDelete
	ActClear
	ActUpdate
)

func (t ActionTag) String() string {
	switch t {
	case ActAdd:
		return "add"
	case ActDelete:
		return "delete"
	case ActClear:
		return "clear"
	case ActUpdate:
		return "update"
	}
	return "unknown"
}

// LogEntry is the encoded action list observed at one version.
type LogEntry struct {
	Version uint64
	Actions []any
}

// ActionLog keeps the recent history of container mutations sorted
// by strictly increasing version. It holds at most limit entries;
// the horizon is the newest version that fell off the front.
type ActionLog struct {
	entries []LogEntry
	limit   int
	horizon uint64
}

func NewActionLog(limit int) *ActionLog {
	return &ActionLog{limit: limit}
}

// Append records actions at version v. Out-of-order versions are
// dropped; a repeated version extends its entry.
func (l *ActionLog) Append(v uint64, actions []any) {
	if len(actions) == 0 {
		return
	}
	if n := len(l.entries); n > 0 {
		last := &l.entries[n-1]
		if v < last.Version {
			return
		}
		if v == last.Version {
			last.Actions = append(last.Actions, actions...)
			return
		}
	}
	l.entries = append(l.entries, LogEntry{Version: v, Actions: actions})
	if l.limit > 0 && len(l.entries) > l.limit {
		drop := len(l.entries) - l.limit
		l.horizon = l.entries[drop-1].Version
		l.entries = append(l.entries[:0:0], l.entries[drop:]...)
	}
}

// Clear truncates the history to the single entry [Clear, actions...].
// Nothing before v can be replayed afterwards.
func (l *ActionLog) Clear(v uint64, actions []any) {
	acts := append([]any{ActClear}, actions...)
	if v > 0 {
		l.horizon = v - 1
	}
	l.entries = []LogEntry{{Version: v, Actions: acts}}
}

// Search finds the first entry with Version >= v.
func (l *ActionLog) Search(v uint64) int {
	return sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Version >= v
	})
}

// Since concatenates the actions in (from, to]. complete is false
// when part of that range is no longer retained.
func (l *ActionLog) Since(from, to uint64) (acts []any, complete bool) {
	if from >= to {
		return nil, true
	}
	if from < l.horizon {
		return nil, false
	}
	for i := l.Search(from + 1); i < len(l.entries) && l.entries[i].Version <= to; i++ {
		acts = append(acts, l.entries[i].Actions...)
	}
	return acts, true
}

func (l *ActionLog) Len() int {
	return len(l.entries)
}

func (l *ActionLog) Entries() []LogEntry {
	return l.entries
}

func (l *ActionLog) Last() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Version
}
