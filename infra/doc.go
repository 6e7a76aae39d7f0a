// Package infra contains technical adapters such as the MQTT peer
// transport, metrics sinks and simulated devices. These packages should
// depend only on the interfaces defined in the core packages.
package infra
