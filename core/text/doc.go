/*
Package text implements the text-measurement state machine: Unicode
normalization, script run segmentation, bidi run resolution, grapheme
clustering, per-cluster horizontal advance accumulation, line breaking and
the fallback-font merge that ties multiple FontRecords into one
TextMetrics.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package text

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'fontkit.text'
func tracer() tracing.Trace {
	return tracing.Select("fontkit.text")
}
