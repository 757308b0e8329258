package control

import (
	"slices"
	"time"

	"github.com/CILXRY/f-sleepy/internal/models"
)

// DeviceTable maps device ids to their last report and remembers first
// insertion order for listing. Like StatusRegistry it relies on State for
// locking.
type DeviceTable struct {
	records map[string]*models.DeviceRecord
	order   []string
}

func newDeviceTable() DeviceTable {
	return DeviceTable{records: make(map[string]*models.DeviceRecord)}
}

// upsert stores rec, replacing any record with the same id in place.
func (t *DeviceTable) upsert(rec models.DeviceRecord) (created bool) {
	if existing, ok := t.records[rec.ID]; ok {
		*existing = rec
		return false
	}
	t.records[rec.ID] = &rec
	t.order = append(t.order, rec.ID)
	return true
}

func (t *DeviceTable) remove(id string) bool {
	if _, ok := t.records[id]; !ok {
		return false
	}
	delete(t.records, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
	return true
}

func (t *DeviceTable) reset() int {
	n := len(t.order)
	clear(t.records)
	t.order = t.order[:0]
	return n
}

func (t *DeviceTable) get(id string) (models.DeviceRecord, bool) {
	rec, ok := t.records[id]
	if !ok {
		return models.DeviceRecord{}, false
	}
	return rec.Clone(), true
}

func (t *DeviceTable) list() []models.DeviceRecord {
	out := make([]models.DeviceRecord, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.records[id].Clone())
	}
	return out
}

func (t *DeviceTable) size() int { return len(t.order) }

// staleBefore returns the ids last seen before cutoff.
func (t *DeviceTable) staleBefore(cutoff time.Time) []string {
	var ids []string
	for _, id := range t.order {
		if t.records[id].LastSeen.Time().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
