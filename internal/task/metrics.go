package task

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNamespace 任务导出指标的命名空间
const MetricsNamespace = "page_notes"

// newGauge 注册 gauge，配置热加载后重复注册时复用已有的 collector
func newGauge(reg prometheus.Registerer, subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
	}
	return g
}
