package fontregistry

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/npillmayer/fontkit/core/font"
	"github.com/npillmayer/fontkit/core/font/ferrors"
	"github.com/npillmayer/fontkit/core/font/key"
	"github.com/npillmayer/fontkit/core/font/query"
	"github.com/npillmayer/fontkit/core/text"
)

// FontInfo is the metadata half of a FontRecord: everything write_data
// needs to repopulate the registry's index without re-decoding the
// container bytes.
type FontInfo struct {
	Key  key.FontKey
	Path string
}

// entry is one registry slot. rec is nil when the decoded buffer has been
// evicted from memory (spilled to disk, or simply dropped when no cache
// path is configured); info survives eviction so fonts_info/write_data
// keep working on cold entries.
type entry struct {
	info    FontInfo
	digest  string
	rec     *font.FontRecord
	refs    int32
	lruElem *list.Element
}

// Registry is a concurrent FontKey-indexed store of FontRecords, with an
// optional LRU byte budget over decoded buffers and disk spill for
// entries evicted under that budget.
//
// The key-indexed map is guarded by a single RWMutex; per spec this is an
// acceptable first iteration ahead of true per-bucket sharding. The LRU
// list and the spill writes made on eviction are guarded by a second,
// list-only mutex; reloading an evicted entry reads the disk without
// holding either lock. Every query, warm ones included, takes the list
// mutex to record its touch, so it can wait behind an eviction's spill
// write.
type Registry struct {
	mu       sync.RWMutex
	byDigest map[string]*entry

	lruMu     sync.Mutex
	lru       *list.List // front = most recently touched
	limitKB   int
	cachePath string
	bufBytes  int64
}

var globalFontRegistry *Registry
var globalRegistryCreation sync.Once

// GlobalRegistry is an application-wide singleton registry.
func GlobalRegistry() *Registry {
	globalRegistryCreation.Do(func() {
		globalFontRegistry = New()
	})
	return globalFontRegistry
}

// New creates an empty registry with no LRU budget (buffers are retained
// indefinitely until explicitly removed).
func New() *Registry {
	return &Registry{
		byDigest: make(map[string]*entry),
		lru:      list.New(),
	}
}

// SetConfig installs an LRU byte budget (in KB; 0 disables the budget) and
// an optional disk spill directory for entries evicted under that budget.
func (r *Registry) SetConfig(limitKB int, cachePath string) {
	r.lruMu.Lock()
	defer r.lruMu.Unlock()
	r.limitKB = limitKB
	r.cachePath = cachePath
}

// Handle is a scoped, refcounted reference to a FontRecord obtained from
// the registry. Callers must call Release once done; the registry's LRU
// accounting is only accurate while every acquired handle is eventually
// released.
type Handle struct {
	reg *Registry
	e   *entry
}

// Record returns the FontRecord this handle refers to.
func (h *Handle) Record() *font.FontRecord { return h.e.rec }

// Release drops this handle's reference. It is safe to call at most once;
// calling it on a nil handle is a no-op.
func (h *Handle) Release() {
	if h == nil || h.e == nil {
		return
	}
	atomic.AddInt32(&h.e.refs, -1)
}

// AddFontFromBuffer decodes buf (any supported container) and inserts one
// record per logical font found inside it, returning every resulting
// FontKey. path is attached to each record for diagnostics and for
// reload-from-source-of-truth after an eviction; pass "" for buffers with
// no backing file.
func (r *Registry) AddFontFromBuffer(buf []byte, path string) ([]key.FontKey, error) {
	recs, err := font.NewFontRecords(buf, path)
	if err != nil {
		return nil, err
	}
	keys := make([]key.FontKey, 0, len(recs))
	for _, rec := range recs {
		r.insert(rec)
		keys = append(keys, rec.Key())
	}
	return keys, nil
}

// insert stores rec under its own key, replacing any prior record at that
// key atomically, then runs the LRU budget check.
func (r *Registry) insert(rec *font.FontRecord) {
	digest := rec.Key().Digest()
	e := &entry{
		info:   FontInfo{Key: rec.Key(), Path: rec.Path()},
		digest: digest,
		rec:    rec,
	}

	r.mu.Lock()
	if old, ok := r.byDigest[digest]; ok {
		r.unlink(old)
	}
	r.byDigest[digest] = e
	r.mu.Unlock()

	r.touch(e, rec.ByteSize())
	r.evictToBudget()
}

// extensions accepted by AddSearchPath's directory walk.
var fontExtensions = map[string]bool{
	".ttf": true, ".otf": true, ".ttc": true, ".woff": true, ".woff2": true,
}

// AddSearchPath recursively walks root, reading and inserting every file
// whose extension marks it as a font. Per-file read or decode failures
// are logged and skipped; the walk itself continues. Only a failure to
// start the walk (e.g. root does not exist) is surfaced to the caller.
func (r *Registry) AddSearchPath(root string) error {
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			tracer().Errorf("registry: walk error at %s: %v", p, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !fontExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		buf, ferr := os.ReadFile(p)
		if ferr != nil {
			tracer().Errorf("registry: cannot read %s: %v", p, ferr)
			return nil
		}
		if _, ferr := r.AddFontFromBuffer(buf, p); ferr != nil {
			tracer().Errorf("registry: cannot parse %s: %v", p, ferr)
		}
		return nil
	})
	if err != nil {
		return &ferrors.IoError{Path: root, Cause: err}
	}
	return nil
}

// Query resolves q against every registered key via the staged filter
// pipeline and returns a handle to the unique winner, if any. The caller
// must Release the handle.
func (r *Registry) Query(q query.Query) (*Handle, bool) {
	digest, ok := r.resolve(q, query.Resolve)
	if !ok {
		return nil, false
	}
	return r.acquire(digest)
}

// ExactMatch resolves q with no relaxation; every provided field
// (including Variations, as a multiset) must match exactly.
func (r *Registry) ExactMatch(q query.Query) (*Handle, bool) {
	digest, ok := r.resolve(q, query.ExactMatch)
	if !ok {
		return nil, false
	}
	return r.acquire(digest)
}

func (r *Registry) resolve(q query.Query, pick func([]key.FontKey, query.Query) (int, bool)) (string, bool) {
	r.mu.RLock()
	candidates := make([]key.FontKey, 0, len(r.byDigest))
	digests := make([]string, 0, len(r.byDigest))
	for d, e := range r.byDigest {
		candidates = append(candidates, e.info.Key)
		digests = append(digests, d)
	}
	r.mu.RUnlock()

	idx, ok := pick(candidates, q)
	if !ok {
		return "", false
	}
	return digests[idx], true
}

// acquire increments the entry's refcount, reloading its decoded buffer
// from disk spill or the original source path if it had been evicted,
// and touches the LRU list.
func (r *Registry) acquire(digest string) (*Handle, bool) {
	r.mu.RLock()
	e, ok := r.byDigest[digest]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if e.rec == nil {
		rec, err := r.reload(e)
		if err != nil {
			return nil, false
		}
		e.rec = rec
		r.touch(e, rec.ByteSize())
		r.evictToBudget()
	} else {
		r.touch(e, 0)
	}

	atomic.AddInt32(&e.refs, 1)
	return &Handle{reg: r, e: e}, true
}

// reload reconstructs a FontRecord for a cold entry, preferring the disk
// spill path (if configured and present) over re-reading the original
// source file.
func (r *Registry) reload(e *entry) (*font.FontRecord, error) {
	r.lruMu.Lock()
	cachePath := r.cachePath
	r.lruMu.Unlock()

	if cachePath != "" {
		spillFile := filepath.Join(cachePath, e.digest+".bin")
		if buf, err := os.ReadFile(spillFile); err == nil {
			return reparseOne(buf, e.info.Path)
		}
	}
	if e.info.Path != "" {
		buf, err := os.ReadFile(e.info.Path)
		if err != nil {
			return nil, &ferrors.IoError{Path: e.info.Path, Cause: err}
		}
		return reparseOne(buf, e.info.Path)
	}
	return nil, &ferrors.NotFound{Family: e.info.Key.Family}
}

func reparseOne(buf []byte, path string) (*font.FontRecord, error) {
	recs, err := font.NewFontRecords(buf, path)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &ferrors.CorruptContainer{Reason: "no logical fonts in reloaded buffer"}
	}
	return recs[0], nil
}

// touch moves e to the front of the LRU list (most recently used) and
// adds deltaBytes to the running total. A deltaBytes of 0 is a pure
// touch, used by warm queries that never re-measure the buffer.
func (r *Registry) touch(e *entry, deltaBytes int) {
	r.lruMu.Lock()
	defer r.lruMu.Unlock()
	if r.limitKB <= 0 {
		r.bufBytes += int64(deltaBytes)
		return
	}
	if e.lruElem != nil {
		r.lru.Remove(e.lruElem)
	}
	e.lruElem = r.lru.PushFront(e)
	r.bufBytes += int64(deltaBytes)
}

// unlink removes e from the LRU list and map-side bookkeeping without
// touching its refcount; used both by remove() and by insert() replacing
// an existing key.
func (r *Registry) unlink(e *entry) {
	r.lruMu.Lock()
	if e.lruElem != nil {
		r.lru.Remove(e.lruElem)
		e.lruElem = nil
	}
	if e.rec != nil {
		r.bufBytes -= int64(e.rec.ByteSize())
	}
	r.lruMu.Unlock()
}

// evictToBudget drops decoded buffers (least-recently-used first, skipping
// any entry with a live handle) until bufBytes fits the configured
// budget, spilling to cachePath first when one is set.
func (r *Registry) evictToBudget() {
	r.lruMu.Lock()
	defer r.lruMu.Unlock()
	if r.limitKB <= 0 {
		return
	}
	limit := int64(r.limitKB) * 1024
	for r.bufBytes > limit {
		elem := r.lru.Back()
		evicted := false
		for elem != nil {
			e := elem.Value.(*entry)
			if e.rec == nil || atomic.LoadInt32(&e.refs) > 0 {
				elem = elem.Prev()
				continue
			}
			if r.cachePath != "" {
				if err := os.MkdirAll(r.cachePath, 0o755); err == nil {
					spillFile := filepath.Join(r.cachePath, e.digest+".bin")
					_ = os.WriteFile(spillFile, e.rec.Buffer(), 0o644)
				}
			}
			r.bufBytes -= int64(e.rec.ByteSize())
			e.rec = nil
			r.lru.Remove(e.lruElem)
			e.lruElem = nil
			evicted = true
			break
		}
		if !evicted {
			break // everything left in memory is pinned by a live handle
		}
	}
}

// Remove unlinks key's entry from the index immediately. A FontRecord
// already held via an outstanding Handle stays valid for that caller
// (the handle owns its own reference); only the registry's own
// bookkeeping for it is dropped here.
func (r *Registry) Remove(k key.FontKey) {
	digest := k.Digest()
	r.mu.Lock()
	e, ok := r.byDigest[digest]
	if ok {
		delete(r.byDigest, digest)
	}
	r.mu.Unlock()
	if ok {
		r.unlink(e)
	}
}

// Len returns the number of distinct keys currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byDigest)
}

// BufferSize returns the sum of retained decoded buffer sizes in bytes.
func (r *Registry) BufferSize() int64 {
	r.lruMu.Lock()
	defer r.lruMu.Unlock()
	return r.bufBytes
}

// QueryFontInfo resolves q exactly as Query does but returns metadata
// only, without acquiring a handle or touching the LRU.
func (r *Registry) QueryFontInfo(q query.Query) ([]FontInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := make([]key.FontKey, 0, len(r.byDigest))
	digests := make([]string, 0, len(r.byDigest))
	for d, e := range r.byDigest {
		candidates = append(candidates, e.info.Key)
		digests = append(digests, d)
	}
	idx, ok := query.Resolve(candidates, q)
	if !ok {
		return nil, false
	}
	return []FontInfo{r.byDigest[digests[idx]].info}, true
}

// FontsInfo returns the metadata of every registered font, in no
// particular order.
func (r *Registry) FontsInfo() []FontInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FontInfo, 0, len(r.byDigest))
	for _, e := range r.byDigest {
		out = append(out, e.info)
	}
	return out
}

// WriteData serializes fonts_info() to a self-describing, line-oriented
// textual form suitable for ReadData to repopulate metadata without
// re-decoding any container.
func (r *Registry) WriteData() string {
	infos := r.FontsInfo()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key.Digest() < infos[j].Key.Digest() })

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "family=%s\n", info.Key.Family)
		fmt.Fprintf(&b, "weight=%d\n", info.Key.Weight)
		fmt.Fprintf(&b, "italic=%t\n", info.Key.Italic)
		fmt.Fprintf(&b, "stretch=%d\n", info.Key.Stretch)
		fmt.Fprintf(&b, "path=%s\n", info.Path)
		for _, v := range info.Key.Variations {
			fmt.Fprintf(&b, "variation=%s=%s\n", v.Axis, strconv.FormatFloat(float64(v.Value), 'g', -1, 32))
		}
		b.WriteString("---\n")
	}
	return b.String()
}

// ReadData parses data produced by WriteData and inserts one metadata-only
// entry per record found (no decoded buffer; a later Query transparently
// reloads from the recorded path). Unknown fields are ignored; malformed
// lines are skipped rather than rejected.
func (r *Registry) ReadData(data string) error {
	var family, path string
	var weight, stretch int
	var italic bool
	var variations []key.Variation
	hasRecord := false

	flush := func() {
		if !hasRecord || family == "" {
			family, path, weight, stretch, italic, variations, hasRecord = "", "", 0, 0, false, nil, false
			return
		}
		k := key.New(family, weight, italic, stretch, variations)
		e := &entry{info: FontInfo{Key: k, Path: path}, digest: k.Digest()}
		r.mu.Lock()
		r.byDigest[e.digest] = e
		r.mu.Unlock()
		family, path, weight, stretch, italic, variations, hasRecord = "", "", 0, 0, false, nil, false
	}

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "---" {
			flush()
			continue
		}
		field, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		hasRecord = true
		switch field {
		case "family":
			family = value
		case "path":
			path = value
		case "weight":
			if n, err := strconv.Atoi(value); err == nil {
				weight = n
			}
		case "stretch":
			if n, err := strconv.Atoi(value); err == nil {
				stretch = n
			}
		case "italic":
			italic = value == "true"
		case "variation":
			axis, val, ok := strings.Cut(value, "=")
			if !ok {
				continue
			}
			f, err := strconv.ParseFloat(val, 32)
			if err != nil {
				continue
			}
			variations = append(variations, key.Variation{Axis: axis, Value: float32(f)})
		}
	}
	flush()
	return nil
}

// Measure resolves q to a primary font and measures s against it. Callers
// needing multi-font fallback should Query directly and drive
// TextMetrics.Replace themselves with a second resolved font.
func (r *Registry) Measure(q query.Query, s string) (*text.TextMetrics, bool) {
	h, ok := r.Query(q)
	if !ok {
		return nil, false
	}
	defer h.Release()
	m, err := text.Measure(h.Record(), s)
	if err != nil {
		return nil, false
	}
	return m, true
}
