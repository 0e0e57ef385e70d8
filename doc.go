/*
Package versync tracks changes of Go values and describes them as
diffs between two versions, so that a remote copy can be brought to
the same state.

Versions are plain uint64 numbers supplied by the caller, e.g. a tick
counter. GenDiff(from, to) describes the changes in (from, to] and
ApplyDiff makes another value follow them. Any range can be asked
for, not only the one since the previous call; container histories
older than Options.HistoryLimit entries are answered with the full
state.

The state a replicator finds when it is built is version 0 and is
never reported; Reset gives the whole state to bring up a blank copy.

A Context builds replicators by the shape of the value:

	struct         ScanObject or TriggerObject, as its schema says
	[]T, [N]T      ScalarSequence or ObjectSequence
	map[K]struct{} ScalarSet
	map[K]V        ScalarMapping or ObjectMapping
	TreeNode       Tree
	Replicator     used as is (see Vec3)

Diffs are made of map[string]any, []any and scalars only:

	object    {"wire name": value or nested diff, ...}
	sequence  [length, index, value, index, value, ...]
	set       [Add, n, key..., Delete, n, key...]
	mapping   [Add, n, key, value, ..., Delete, n, key..., Update, n, key, diff, ...]
	reset     [Clear, Add, n, ...] for sets and mappings
	tree      {"root/child:Type": nested diff, ...}

A nil diff means nothing changed. A nested value that is new, or
replaced by another pointer, travels with its whole state. A field
whose pointer became nil travels as the key with a nil value.

Replicators are not safe for concurrent use; one goroutine owns the
values and their replicators, and hands diffs to others, see
Publisher and Subscriber.
*/
package versync
