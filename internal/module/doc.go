// Package module is the named-module execution layer: a registry of runnable
// modules, the environment they run in, and a supervisor that runs a set of
// them side by side on one bus.
package module
