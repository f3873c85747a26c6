/*
Package fontregistry manages a concurrent registry of loaded fonts: a
FontKey-indexed store with an optional LRU byte budget over decoded
buffers and disk spill/reload for evicted entries.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package fontregistry

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'fontkit.registry'
func tracer() tracing.Trace {
	return tracing.Select("fontkit.registry")
}
