package collectors

import (
	"context"
	"fmt"
	"strings"
)

// collectSoftware lists installed packages. A host without the configured
// package tool yields an empty list.
func (c *Collector) collectSoftware(ctx context.Context) Outcome[[]string] {
	lines, ok := c.tools.Lines(ctx, c.opts.Packages)
	if !ok {
		return degraded([]string{}, fmt.Errorf("%s unavailable", c.opts.Packages))
	}
	return succeeded(parseSoftwareList(lines))
}

// parseSoftwareList drops the header line and blank padding, trims the rest
func parseSoftwareList(lines []string) []string {
	software := []string{}
	if len(lines) <= 1 {
		return software
	}
	for _, line := range lines[1:] {
		if name := strings.TrimSpace(line); name != "" {
			software = append(software, name)
		}
	}
	return software
}
