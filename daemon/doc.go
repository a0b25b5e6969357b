// Package daemon detaches the process, holds the pid lock, and runs the
// watch pipeline until a termination signal arrives.
package daemon
