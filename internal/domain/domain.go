package domain

// TeacherUnknown is the sentinel for events whose teacher could not be
// extracted from any feed field.
const TeacherUnknown = "—"

// Group is one academic group and its calendar sources. Loaded once at
// startup, immutable afterwards.
type Group struct {
	// Key is the stable configuration identifier (e.g. "1A_TP1").
	Key string
	// Name is the display name (e.g. "1ère année TP1").
	Name string
	// FeedURLs are the iCal sources for this group, in configured order.
	FeedURLs []string
}

// FeedKey scopes a snapshot to one calendar source of one group.
func (g Group) FeedKey(url string) string {
	return g.Name + "::" + url
}

// Event is a normalized calendar entry. Events are value objects: diffing
// identity comes from a derived key, never from pointer identity.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Organizer   string

	// Start and End keep the source-format timestamps; the epochs are
	// normalized seconds and are always set (unparseable input falls back
	// to fetch time).
	Start      string
	End        string
	StartEpoch int64
	EndEpoch   int64

	// Teacher is heuristically extracted; TeacherUnknown when no strategy
	// matched. Group is the inferred group label, possibly empty.
	Teacher string
	Group   string

	LastModifiedEpoch *int64
	UpdatedEpoch      *int64
	RecentlyModified  bool
}

// Subscription is one user's delivery preference, keyed by UserID.
type Subscription struct {
	UserID  string
	Group   string
	Mention bool
	DM      bool
}

// ChangeType classifies one detected difference between two snapshots.
type ChangeType int

const (
	ChangeAdded ChangeType = iota
	ChangeRemoved
	ChangeModified
	ChangeLocation
)

func (t ChangeType) String() string {
	switch t {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	case ChangeLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Change is one classified difference. Old is nil for ChangeAdded, New is
// nil for ChangeRemoved; both are set for ChangeModified and
// ChangeLocation.
type Change struct {
	Type ChangeType
	Old  *Event
	New  *Event
}

// Source returns the event to describe the change by: the new state when
// present, otherwise the old one.
func (c Change) Source() *Event {
	if c.New != nil {
		return c.New
	}

	return c.Old
}

// ChangePair holds the before/after states of a surviving event.
type ChangePair struct {
	Old Event
	New Event
}

// ChangeSet is the full output of one diff cycle. The four sets are
// disjoint by event key.
type ChangeSet struct {
	Added           []Event
	Removed         []Event
	Modified        []ChangePair
	LocationChanged []ChangePair
}

// Empty reports whether the diff found no changes at all.
func (cs ChangeSet) Empty() bool {
	return len(cs.Added) == 0 &&
		len(cs.Removed) == 0 &&
		len(cs.Modified) == 0 &&
		len(cs.LocationChanged) == 0
}

// Changes flattens the set into routable changes, added first, then
// removed, then time changes, then room changes.
func (cs ChangeSet) Changes() []Change {
	changes := make([]Change, 0,
		len(cs.Added)+len(cs.Removed)+len(cs.Modified)+len(cs.LocationChanged))

	for i := range cs.Added {
		changes = append(changes, Change{Type: ChangeAdded, New: &cs.Added[i]})
	}
	for i := range cs.Removed {
		changes = append(changes, Change{Type: ChangeRemoved, Old: &cs.Removed[i]})
	}
	for i := range cs.Modified {
		changes = append(changes, Change{
			Type: ChangeModified,
			Old:  &cs.Modified[i].Old,
			New:  &cs.Modified[i].New,
		})
	}
	for i := range cs.LocationChanged {
		changes = append(changes, Change{
			Type: ChangeLocation,
			Old:  &cs.LocationChanged[i].Old,
			New:  &cs.LocationChanged[i].New,
		})
	}

	return changes
}
