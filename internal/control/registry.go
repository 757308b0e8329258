package control

import "github.com/CILXRY/f-sleepy/internal/models"

// StatusRegistry holds the global status selector and the configured
// status list. It is not safe for concurrent use; State serializes access.
type StatusRegistry struct {
	list     []models.StatusDefinition
	current  int
	switches int64
}

func newStatusRegistry(list []models.StatusDefinition, current int) StatusRegistry {
	return StatusRegistry{list: cloneStatusList(list), current: current}
}

// set moves the selector to id when it is in range.
func (r *StatusRegistry) set(id int) bool {
	if id < 0 || id >= len(r.list) {
		return false
	}
	r.current = id
	r.switches++
	return true
}

// resolve maps a selector to its definition. ok is false when the selector
// is out of range, in which case the unknown sentinel is returned.
func (r *StatusRegistry) resolve(id int) (models.StatusDefinition, bool) {
	if id < 0 || id >= len(r.list) {
		return models.UnknownStatus(id), false
	}
	return r.list[id], true
}

func cloneStatusList(list []models.StatusDefinition) []models.StatusDefinition {
	out := make([]models.StatusDefinition, len(list))
	copy(out, list)
	return out
}
