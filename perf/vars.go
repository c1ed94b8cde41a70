package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency        = metric.NewHistogram("1m1s")
	SpfLatency             = metric.NewHistogram("1m1s")
	SpfRuns                = metric.NewCounter("10s1s")
	CoalescedChanges       = metric.NewCounter("10s1s")
	AbortedComputations    = metric.NewCounter("10s1s")
	FloodedAdvertisements  = metric.NewCounter("10s1s")
	InstalledAdvertisements = metric.NewCounter("10s1s")
	RouteChanges           = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("lsr:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("lsr:SpfLatency (µs)", SpfLatency)
	expvar.Publish("lsr:SpfRuns/s", SpfRuns)
	expvar.Publish("lsr:CoalescedChanges/s", CoalescedChanges)
	expvar.Publish("lsr:AbortedComputations/s", AbortedComputations)
	expvar.Publish("lsr:FloodedAdvertisements/s", FloodedAdvertisements)
	expvar.Publish("lsr:InstalledAdvertisements/s", InstalledAdvertisements)
	expvar.Publish("lsr:RouteChanges/s", RouteChanges)
}
