package agent

import (
	"context"
	"fmt"
	"math"

	"github.com/CILXRY/f-sleepy/internal/models"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemCollector reports host information. It has no view of the
// foreground window or battery; platform specific collectors can wrap it
// and fill those in.
type SystemCollector struct {
	DeviceID string
	ShowName string
}

func (c *SystemCollector) Collect(ctx context.Context) (models.DeviceReport, error) {
	report := models.DeviceReport{
		ID:            c.DeviceID,
		ShowName:      c.ShowName,
		Using:         true,
		BatteryStatus: models.BatteryUnknown,
		Fields:        map[string]any{},
	}

	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return report, fmt.Errorf("host info: %w", err)
	}
	if report.ShowName == "" {
		report.ShowName = h.Hostname
	}
	report.Status = fmt.Sprintf("%s %s", h.Platform, h.PlatformVersion)
	report.Fields["os"] = h.OS
	report.Fields["kernel"] = h.KernelVersion

	// Rounded so that bypass-same still skips unchanged reports.
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		report.Fields["cpu_percent"] = math.Round(p[0])
	}
	if v, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		report.Fields["memory_percent"] = math.Round(v.UsedPercent)
	}
	return report, nil
}
