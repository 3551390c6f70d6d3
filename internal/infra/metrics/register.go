package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister installs every queued collector into reg, at most once per
// process. A nil reg means the default registry.
func MustRegister(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		reg.MustRegister(pending...)
	})
}

const maxLabelLen = 48

// norm keeps label values lower-case, bounded and never empty.
func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}
