// Package dashboard is the full-screen view behind 'rmon watch'.
//
// The model subscribes to the collector's updates and the registry's events
// and renders one card per server: CPU and memory sparklines, root disk
// usage, network rates and the busiest process. Enter opens a scrollable
// detail view with every section of the latest snapshot. The dashboard never
// polls on its own except when the user presses r.
package dashboard
