// Package metrics counts shared cache events and renders them in the
// Prometheus text exposition format.
//
// Collector implements shared.Observer; register it with
// shared.WithObserver. Gather returns client_model metric families,
// WriteText encodes them with expfmt, and Parse/Sum read an exposition back.
package metrics
