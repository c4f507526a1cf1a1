package version

// AuctiondVersion is the current semantic version of the node, overridable at
// build time via -ldflags.
var AuctiondVersion = "0.1.0"
