package bbch

// Tracker remembers the highest stage code reached per crop so the reported
// stage never goes backwards when a transient input dip lowers the raw code.
// One tracker belongs to one session; it is not safe for concurrent use.
type Tracker struct {
	highest map[string]string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{highest: make(map[string]string)}
}

// Reconcile returns the higher of raw and the stored highest code for crop,
// and stores it. The first call for a crop stores raw.
func (t *Tracker) Reconcile(crop, raw string) string {
	prev, ok := t.highest[crop]
	if ok && CompareCodes(prev, raw) >= 0 {
		return prev
	}
	t.highest[crop] = raw
	return raw
}

// Highest returns the stored code for crop, if any.
func (t *Tracker) Highest(crop string) (string, bool) {
	code, ok := t.highest[crop]
	return code, ok
}

// Reset forgets the stored code for crop.
func (t *Tracker) Reset(crop string) {
	delete(t.highest, crop)
}

// ResetAll forgets every crop.
func (t *Tracker) ResetAll() {
	clear(t.highest)
}
