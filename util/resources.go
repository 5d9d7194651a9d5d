// util/resources.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vatsimnet/eventproc/log"
)

// LogResourceUsagePeriodically logs CPU%, memory, and goroutine count
// every interval until ctx is cancelled, as a standing heartbeat for
// operators watching the log stream.
func LogResourceUsagePeriodically(ctx context.Context, lg *log.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pct, _ := cpu.Percent(0, false)
			var cpuPct float64
			if len(pct) > 0 {
				cpuPct = pct[0]
			}

			var memPct float64
			if vm, err := mem.VirtualMemory(); err == nil {
				memPct = vm.UsedPercent
			}

			lg.Infof("resource usage: cpu=%.1f%% mem=%.1f%% goroutines=%d",
				cpuPct, memPct, runtime.NumGoroutine())
		}
	}
}
