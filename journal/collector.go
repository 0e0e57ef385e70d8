package journal

import (
	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"
)

var AppendedPackets = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "versync",
	Subsystem: "journal",
	Name:      "appended_packets",
}, []string{"stream"})

type pebbleMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(m *pebble.Metrics) float64
}

func counter(name, help string, value func(m *pebble.Metrics) float64) pebbleMetric {
	return pebbleMetric{
		desc:  prometheus.NewDesc("versync_journal_pebble_"+name, help, nil, nil),
		kind:  prometheus.CounterValue,
		value: value,
	}
}

func gauge(name, help string, value func(m *pebble.Metrics) float64) pebbleMetric {
	return pebbleMetric{
		desc:  prometheus.NewDesc("versync_journal_pebble_"+name, help, nil, nil),
		kind:  prometheus.GaugeValue,
		value: value,
	}
}

// Collector exports the storage metrics of a journal.
type Collector struct {
	j       *Journal
	metrics []pebbleMetric
}

func NewCollector(j *Journal) *Collector {
	return &Collector{
		j: j,
		metrics: []pebbleMetric{
			counter("compaction_count_total", "Total number of compactions performed",
				func(m *pebble.Metrics) float64 { return float64(m.Compact.Count) }),
			gauge("compaction_estimated_debt_bytes", "Bytes to compact to reach a stable state",
				func(m *pebble.Metrics) float64 { return float64(m.Compact.EstimatedDebt) }),
			gauge("compaction_in_progress_bytes", "Bytes being compacted currently",
				func(m *pebble.Metrics) float64 { return float64(m.Compact.InProgressBytes) }),
			gauge("memtable_size_bytes", "Current size of the memtables",
				func(m *pebble.Metrics) float64 { return float64(m.MemTable.Size) }),
			gauge("memtable_count", "Current count of memtables",
				func(m *pebble.Metrics) float64 { return float64(m.MemTable.Count) }),
			gauge("wal_files", "Number of live WAL files",
				func(m *pebble.Metrics) float64 { return float64(m.WAL.Files) }),
			gauge("wal_size_bytes", "Size of live WAL data",
				func(m *pebble.Metrics) float64 { return float64(m.WAL.Size) }),
			counter("wal_bytes_in_total", "Logical bytes written to the WAL",
				func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesIn) }),
			counter("wal_bytes_written_total", "Physical bytes written to the WAL",
				func(m *pebble.Metrics) float64 { return float64(m.WAL.BytesWritten) }),
		},
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
	AppendedPackets.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	pm := c.j.Metrics()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(pm))
	}
	AppendedPackets.Collect(ch)
}
