package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/smazurov/devup/internal/process"
)

// StatusSource reports the managed processes.
type StatusSource interface {
	Snapshot() []process.Status
}

// resourceCollector reports CPU and memory per managed process group.
// Children run in their own process group, so everything the shell wrapper
// spawned is summed under the service name.
type resourceCollector struct {
	source StatusSource
	fs     procfs.FS

	cpu       *prometheus.Desc
	resident  *prometheus.Desc
	processes *prometheus.Desc
}

// groupUsage is the summed usage of one process group.
type groupUsage struct {
	cpuSeconds    float64
	residentBytes float64
	count         int
}

// WatchResources registers a collector that samples /proc for every running
// managed process at scrape time. Fails where procfs is unavailable.
func (m *Metrics) WatchResources(source StatusSource) error {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return err
	}
	return m.registry.Register(newResourceCollector(source, fs))
}

func newResourceCollector(source StatusSource, fs procfs.FS) *resourceCollector {
	return &resourceCollector{
		source: source,
		fs:     fs,
		cpu: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "cpu_seconds_total"),
			"User and system CPU time of the process group",
			[]string{"name"}, nil,
		),
		resident: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "resident_memory_bytes"),
			"Resident memory of the process group",
			[]string{"name"}, nil,
		),
		processes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "group_size"),
			"Number of live processes in the group",
			[]string{"name"}, nil,
		),
	}
}

func (c *resourceCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpu
	ch <- c.resident
	ch <- c.processes
}

func (c *resourceCollector) Collect(ch chan<- prometheus.Metric) {
	groups := make(map[int]string)
	for _, st := range c.source.Snapshot() {
		if st.PID > 0 && !st.Exited {
			groups[st.PID] = st.Name
		}
	}
	if len(groups) == 0 {
		return
	}

	usage := c.sample(groups)
	for pgid, name := range groups {
		u, ok := usage[pgid]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.cpu, prometheus.CounterValue, u.cpuSeconds, name)
		ch <- prometheus.MustNewConstMetric(c.resident, prometheus.GaugeValue, u.residentBytes, name)
		ch <- prometheus.MustNewConstMetric(c.processes, prometheus.GaugeValue, float64(u.count), name)
	}
}

// sample walks /proc once and sums stats by process group.
func (c *resourceCollector) sample(groups map[int]string) map[int]*groupUsage {
	usage := make(map[int]*groupUsage)

	procs, err := c.fs.AllProcs()
	if err != nil {
		return usage
	}
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			// exited between listing and reading
			continue
		}
		if _, ok := groups[stat.PGRP]; !ok {
			continue
		}
		u := usage[stat.PGRP]
		if u == nil {
			u = &groupUsage{}
			usage[stat.PGRP] = u
		}
		u.cpuSeconds += stat.CPUTime()
		u.residentBytes += float64(stat.ResidentMemory())
		u.count++
	}
	return usage
}
