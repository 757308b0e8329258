package control

import (
	"slices"
	"sync/atomic"

	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/rs/zerolog/log"
)

// Assembler builds the read-only aggregate view. Polling reads and stream
// updates both go through BuildView.
type Assembler struct {
	state      *State
	meta       atomic.Pointer[models.Meta]
	usingFirst atomic.Bool
}

func NewAssembler(state *State) *Assembler {
	return &Assembler{state: state}
}

// SetMeta replaces the metadata block merged into views on request.
func (a *Assembler) SetMeta(m models.Meta) {
	a.meta.Store(&m)
	a.usingFirst.Store(m.Status.UsingFirst)
}

// BuildView captures the current state. It never mutates anything.
func (a *Assembler) BuildView(includeMeta, includeMetrics bool) models.FullView {
	v := a.state.capture()
	if !v.known {
		log.Debug().Int("status", v.statusID).Msg("serving unknown status")
	}
	if a.usingFirst.Load() {
		slices.SortStableFunc(v.devices, func(x, y models.DeviceRecord) int {
			switch {
			case x.Using == y.Using:
				return 0
			case x.Using:
				return -1
			default:
				return 1
			}
		})
	}

	view := models.FullView{
		Success:     true,
		Time:        models.Timestamp(a.state.now()),
		Status:      v.status,
		Device:      v.devices,
		LastUpdated: models.Timestamp(v.lastUpdated),
		Generation:  v.generation,
	}
	if includeMeta {
		if m := a.meta.Load(); m != nil {
			meta := *m
			view.Meta = &meta
		}
	}
	if includeMetrics {
		report := a.state.Metrics()
		view.Metrics = &report
	}
	return view
}

// Meta returns the current metadata block, if one was set.
func (a *Assembler) Meta() (models.Meta, bool) {
	m := a.meta.Load()
	if m == nil {
		return models.Meta{}, false
	}
	return *m, true
}
