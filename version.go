package ddevil

// Version is the release version of ddevil, overridable at build time.
var Version = "0.2.0"
