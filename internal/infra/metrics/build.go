package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set at link time with -ldflags "-X ...".
var (
	Version = "dev"
	Commit  = "none"
)

func init() {
	register(buildInfo)
	buildInfo.WithLabelValues(Version, Commit).Set(1)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata. Value is always 1.",
	},
	[]string{"version", "commit"},
)
