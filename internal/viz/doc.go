// Package viz renders control runs in the terminal.
//
// [Monitor] is a Bubble Tea model that follows a running loop through a
// [Feed] hook and retunes gains live. [PlotTraces] draws recorded runs with
// asciigraph.
package viz
