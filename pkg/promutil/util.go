package promutil

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	systemID = "system"
	prefix   = "distddl"
)

const (
	// constLabelNodeKey is used to recognize metric of the coordinator node
	constLabelNodeKey = "node"
)

// HTTPHandlerForMetric return http.Handler for prometheus metric
func HTTPHandlerForMetric() http.Handler {
	return promhttp.HandlerFor(
		globalMetricGatherer,
		promhttp.HandlerOpts{},
	)
}

// NewFactory4Component returns a Factory whose metrics carry the node label
// and are unregistered together by UnregisterComponent.
func NewFactory4Component(owner OwnerID, node string) Factory {
	return &wrappingFactory{
		r:      globalMetricRegistry,
		id:     owner,
		prefix: prefix,
		constLabels: prometheus.Labels{
			constLabelNodeKey: node,
		},
	}
}

// NewFactory4Test returns a Factory backed by a private registry.
func NewFactory4Test(owner OwnerID) (Factory, *Registry) {
	r := NewRegistry()
	return &wrappingFactory{
		r:      r,
		id:     owner,
		prefix: prefix,
	}, r
}

// UnregisterComponent unregisters every metric created by the factory of owner.
func UnregisterComponent(owner OwnerID) {
	globalMetricRegistry.Unregister(owner)
}
