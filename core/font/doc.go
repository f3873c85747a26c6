/*
Package font holds the in-memory representation of a loaded font and the
machinery to build one from raw bytes: container detection and decoding
(sub-package container), canonical identity (sub-package key), outline
accumulation (sub-package outline), and the FontRecord type that ties a
parsed face to its key.

The concurrent, queryable collection of FontRecords lives in sub-package
fontregistry, which resolves queries through the staged filter pipeline
of sub-package query.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package font

import (
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
)

// T traces to the global core-tracer.
func T() tracing.Trace {
	return gtrace.CoreTracer
}
