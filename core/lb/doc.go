// Package lb implements the load-balancing agent of a microgrid node. Each
// cycle the agent aggregates local device readings, classifies the node as
// Supply, Normal or Demand, advertises classification changes to its peers
// and, when in Supply, negotiates peer-to-peer transfer of surplus power to
// demanding nodes using the drafting algorithm.
//
// The agent runs a single goroutine that serializes the periodic evaluation
// and inbound message handling, so the registry and classification state
// need no locking.
package lb
