package geometry

// EntryKind tags a registry entry as a room or a hallway.
type EntryKind int

const (
	KindRoom EntryKind = iota
	KindHallway
)

func (k EntryKind) String() string {
	if k == KindHallway {
		return "hallway"
	}
	return "room"
}

// Entry is one committed volume. OwnerID is a point id for rooms and a
// segment id for hallways.
type Entry struct {
	Box     AABB
	OwnerID int
	Kind    EntryKind
}

// Registry is the append-only index of placed volumes.
type Registry struct {
	entries []Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add commits a volume.
func (r *Registry) Add(box AABB, ownerID int, kind EntryKind) {
	r.entries = append(r.entries, Entry{Box: box, OwnerID: ownerID, Kind: kind})
}

// Conflicts returns every entry box interpenetrates beyond tol. skip, when
// non-nil, excludes entries from consideration.
func (r *Registry) Conflicts(box AABB, tol float64, skip func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if skip != nil && skip(e) {
			continue
		}
		if box.Intersects(e.Box, tol) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of every committed entry in insertion order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of committed entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Clear drops every entry.
func (r *Registry) Clear() {
	r.entries = nil
}

// SkipRoom returns a skip predicate excluding the room owned by pointID.
func SkipRoom(pointID int) func(Entry) bool {
	return func(e Entry) bool {
		return e.Kind == KindRoom && e.OwnerID == pointID
	}
}
