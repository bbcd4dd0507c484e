package services

import (
	"context"
	"os"
	"time"

	"daycare-backend-go/internal/db"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type SystemSample struct {
	CapturedAt        time.Time        `json:"capturedAt"`
	ProcessRSSBytes   int64            `json:"processRssBytes"`
	SystemMemoryTotal int64            `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64            `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64            `json:"diskTotalBytes"`
	DiskUsedBytes     int64            `json:"diskUsedBytes"`
	ProcessCpuLoad    float64          `json:"processCpuLoad"`
	SystemCpuLoad     float64          `json:"systemCpuLoad"`
	DatabaseDialect   string           `json:"databaseDialect"`
	DatabaseBytes     int64            `json:"databaseBytes,omitempty"`
	TableRows         map[string]int64 `json:"tableRows"`
}

var countedTables = []string{"children", "attendance", "egress", "users"}

// CaptureSystem takes one host and database sample on demand. Host readings
// that fail leave their fields at zero.
func CaptureSystem(ctx context.Context, store *db.Store, diskPath, databaseURL string) (SystemSample, error) {
	sample := SystemSample{
		CapturedAt:      time.Now().UTC(),
		DatabaseDialect: string(store.Dialect()),
		TableRows:       map[string]int64{},
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil && rss != nil {
			sample.ProcessRSSBytes = int64(rss.RSS)
		}
		if cpuPerc, err := proc.CPUPercentWithContext(ctx); err == nil {
			sample.ProcessCpuLoad = cpuPerc / 100.0
		}
	}
	if memStat, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.SystemMemoryTotal = int64(memStat.Total)
		sample.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		diskStat, err = disk.UsageWithContext(ctx, "/")
	}
	if err == nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}
	if sysCPU, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(sysCPU) > 0 {
		sample.SystemCpuLoad = sysCPU[0] / 100.0
	}
	if store.Dialect() == db.DialectSQLite {
		if info, err := os.Stat(databaseURL); err == nil {
			sample.DatabaseBytes = info.Size()
		}
	}
	for _, table := range countedTables {
		var count int64
		if err := store.Get(ctx, &count, `SELECT COUNT(*) FROM `+table); err != nil {
			return SystemSample{}, err
		}
		sample.TableRows[table] = count
	}
	return sample, nil
}
