// Package metrics writes a run's readings in the node_exporter textfile
// format. Each run gets its own registry; nothing is served over HTTP.
package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sigreer/sptinv/internal/device"
)

const namespace = "sptinv"

var driveLabels = []string{"device", "serial", "enclosure", "slot"}

// Exporter collects gauges for one run.
type Exporter struct {
	reg *prometheus.Registry

	temperature  *prometheus.GaugeVec
	capacity     *prometheus.GaugeVec
	powerOnHours *prometheus.GaugeVec
	devices      *prometheus.GaugeVec
	failed       prometheus.Gauge
	duration     prometheus.Gauge
	lastRun      prometheus.Gauge
	cacheHits    prometheus.Gauge
	cacheMisses  prometheus.Gauge
}

func New(runID, version string) *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	e := &Exporter{
		reg: reg,
		temperature: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drive_temperature_celsius",
			Help:      "Drive temperature reported by the drive.",
		}, driveLabels),
		capacity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drive_capacity_bytes",
			Help:      "Drive capacity from READ CAPACITY(16).",
		}, driveLabels),
		powerOnHours: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "drive_power_on_hours",
			Help:      "SMART power-on hours (ATA drives only).",
		}, driveLabels),
		devices: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Complete device records by type.",
		}, []string{"type"}),
		failed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_failed",
			Help:      "Devices dropped because a required query failed.",
		}),
		duration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the inventory run.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
		cacheHits: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_hits",
			Help:      "Optional queries answered from the per-serial cache.",
		}),
		cacheMisses: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_misses",
			Help:      "Optional queries that went to the drive.",
		}),
	}

	f.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "run_info",
		Help:        "Always 1; labels identify the run.",
		ConstLabels: prometheus.Labels{"run_id": runID, "version": version},
	}).Set(1)

	return e
}

// Summary is what a run reports besides its device records.
type Summary struct {
	Failed      int
	Duration    time.Duration
	Finished    time.Time
	CacheHits   uint64
	CacheMisses uint64
}

func (e *Exporter) Observe(devs []device.Device, s Summary) {
	var disks, encs int
	for i := range devs {
		d := &devs[i]
		if d.IsEnclosure() {
			encs++
			continue
		}
		disks++

		labels := prometheus.Labels{
			"device":    d.Name(),
			"serial":    d.SerialNumber,
			"enclosure": d.EnclosureDevice,
			"slot":      d.EnclosureSlot,
		}
		if d.CapacityBlocks > 0 {
			e.capacity.With(labels).Set(float64(d.CapacityBlocks) * float64(d.BlockLength))
		}
		if c, ok := celsius(d.Temperature); ok {
			e.temperature.With(labels).Set(c)
		}
		if h, err := strconv.ParseFloat(d.PowerOnHours, 64); err == nil {
			e.powerOnHours.With(labels).Set(h)
		}
	}

	e.devices.WithLabelValues(string(device.TypeDisk)).Set(float64(disks))
	e.devices.WithLabelValues(string(device.TypeEnclosure)).Set(float64(encs))
	e.failed.Set(float64(s.Failed))
	e.duration.Set(s.Duration.Seconds())
	e.lastRun.Set(float64(s.Finished.Unix()))
	e.cacheHits.Set(float64(s.CacheHits))
	e.cacheMisses.Set(float64(s.CacheMisses))
}

// WriteTextfile atomically replaces path with the current readings.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Registry exposes the run registry, mostly for tests.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// celsius parses "39 C".
func celsius(t string) (float64, bool) {
	fields := strings.Fields(t)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	return v, err == nil
}
