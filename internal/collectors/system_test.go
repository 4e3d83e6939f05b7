package collectors

import (
	"context"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

func TestNewMemorySummary(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		available uint64
		want      MemorySummary
	}{
		{
			name:      "typical",
			total:     16 * gb,
			available: 6 * gb,
			want:      MemorySummary{TotalGB: 16, UsedGB: 10, FreeGB: 6},
		},
		{
			name:      "nothing free",
			total:     8 * gb,
			available: 0,
			want:      MemorySummary{TotalGB: 8, UsedGB: 8, FreeGB: 0},
		},
		{
			name:      "available larger than total",
			total:     4 * gb,
			available: 5 * gb,
			want:      MemorySummary{TotalGB: 4, UsedGB: 0, FreeGB: 4},
		},
		{
			name: "zero",
			want: MemorySummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newMemorySummary(tt.total, tt.available); got != tt.want {
				t.Errorf("newMemorySummary() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestMemorySummaryAddsUp sweeps odd byte counts through the rounding
func TestMemorySummaryAddsUp(t *testing.T) {
	const tolerance = 0.011

	for total := uint64(1); total < 64*gb; total = total*3 + 12345 {
		for _, frac := range []float64{0, 0.013, 0.333, 0.5, 0.999, 1} {
			available := uint64(float64(total) * frac)
			m := newMemorySummary(total, available)
			if diff := math.Abs(m.UsedGB + m.FreeGB - m.TotalGB); diff > tolerance {
				t.Fatalf("total=%d available=%d: used %.2f + free %.2f != total %.2f",
					total, available, m.UsedGB, m.FreeGB, m.TotalGB)
			}
		}
	}
}

func TestCollectIdentity(t *testing.T) {
	p := healthyPlatform()
	c := newTestCollector(testOptions(), healthyTools(), p)

	got := c.collectIdentity(context.Background())
	if got.Degraded {
		t.Fatalf("collectIdentity() degraded: %v", got.Err)
	}

	want := SystemIdentity{
		System:    "Windows",
		NodeName:  "WS-042",
		Release:   "10.0.19045",
		Version:   "Microsoft Windows 10 Pro 10.0.19045 Build 19045",
		Machine:   "x86_64",
		Processor: "Intel(R) Core(TM) i7-6600U CPU @ 2.60GHz",
	}
	if got.Value != want {
		t.Errorf("collectIdentity() = %+v, want %+v", got.Value, want)
	}
}

func TestCollectIdentityFallback(t *testing.T) {
	c := newTestCollector(testOptions(), healthyTools(), &fakePlatform{fail: true})

	got := c.collectIdentity(context.Background())
	if !got.Degraded || got.Err == nil {
		t.Fatalf("collectIdentity() = %+v, want degraded with cause", got)
	}
	if got.Value.System != titleOS(runtime.GOOS) {
		t.Errorf("System = %q, want %q", got.Value.System, titleOS(runtime.GOOS))
	}
	if got.Value.Machine != runtime.GOARCH {
		t.Errorf("Machine = %q, want %q", got.Value.Machine, runtime.GOARCH)
	}
	if got.Value.Processor != runtime.GOARCH {
		t.Errorf("Processor = %q, want machine fallback %q", got.Value.Processor, runtime.GOARCH)
	}
}

func TestCollectIdentityBlankModel(t *testing.T) {
	p := healthyPlatform()
	p.cpus = []cpu.InfoStat{{ModelName: "  "}}
	c := newTestCollector(testOptions(), healthyTools(), p)

	got := c.collectIdentity(context.Background())
	if got.Value.Processor != "x86_64" {
		t.Errorf("Processor = %q, want %q", got.Value.Processor, "x86_64")
	}
}

func TestTitleOS(t *testing.T) {
	tests := map[string]string{
		"linux":   "Linux",
		"windows": "Windows",
		"darwin":  "Darwin",
		"freebsd": "Freebsd",
		"":        "",
	}
	for in, want := range tests {
		if got := titleOS(in); got != want {
			t.Errorf("titleOS(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollectCPU(t *testing.T) {
	tests := []struct {
		name         string
		physical     int
		logical      int
		percent      float64
		want         CPUSummary
		wantDegraded bool
	}{
		{
			name:     "normal",
			physical: 4,
			logical:  8,
			percent:  12.345,
			want:     CPUSummary{PhysicalCores: 4, TotalCores: 8, UsagePercent: 12.35},
		},
		{
			name:     "percent clamped high",
			physical: 2,
			logical:  2,
			percent:  100.7,
			want:     CPUSummary{PhysicalCores: 2, TotalCores: 2, UsagePercent: 100},
		},
		{
			name:     "percent clamped low",
			physical: 2,
			logical:  2,
			percent:  -3,
			want:     CPUSummary{PhysicalCores: 2, TotalCores: 2, UsagePercent: 0},
		},
		{
			name:         "zero logical falls back to runtime",
			physical:     0,
			logical:      0,
			percent:      5,
			want:         CPUSummary{PhysicalCores: 0, TotalCores: runtime.NumCPU(), UsagePercent: 5},
			wantDegraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := healthyPlatform()
			p.physical, p.logical, p.percent = tt.physical, tt.logical, tt.percent
			c := newTestCollector(testOptions(), healthyTools(), p)

			got := c.collectCPU(context.Background())
			if got.Value != tt.want {
				t.Errorf("collectCPU() = %+v, want %+v", got.Value, tt.want)
			}
			if got.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v", got.Degraded, tt.wantDegraded)
			}
		})
	}
}

func TestCollectCPUSampleInterval(t *testing.T) {
	p := healthyPlatform()
	opts := testOptions()
	opts.CPUSampleInterval = 250 * time.Millisecond
	c := newTestCollector(opts, healthyTools(), p)

	c.collectCPU(context.Background())
	if p.sampledFor != opts.CPUSampleInterval {
		t.Errorf("sampled for %v, want %v", p.sampledFor, opts.CPUSampleInterval)
	}
}

func TestCollectCPUFailure(t *testing.T) {
	c := newTestCollector(testOptions(), healthyTools(), &fakePlatform{fail: true})

	got := c.collectCPU(context.Background())
	if !got.Degraded {
		t.Fatal("collectCPU() not degraded on platform failure")
	}
	if got.Value.TotalCores < 1 {
		t.Errorf("TotalCores = %d, want >= 1", got.Value.TotalCores)
	}
	if got.Value.PhysicalCores != 0 || got.Value.UsagePercent != 0 {
		t.Errorf("collectCPU() = %+v, want zero physical cores and usage", got.Value)
	}
}

func TestCollectMemory(t *testing.T) {
	c := newTestCollector(testOptions(), healthyTools(), healthyPlatform())
	got := c.collectMemory(context.Background())
	want := MemorySummary{TotalGB: 16, UsedGB: 10, FreeGB: 6}
	if got.Degraded || got.Value != want {
		t.Errorf("collectMemory() = %+v, want %+v", got, want)
	}

	c = newTestCollector(testOptions(), healthyTools(), &fakePlatform{fail: true})
	got = c.collectMemory(context.Background())
	if !got.Degraded || got.Value != (MemorySummary{}) {
		t.Errorf("collectMemory() on failure = %+v, want degraded zero summary", got)
	}
}
