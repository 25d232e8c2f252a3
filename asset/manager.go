// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const prefix = "asset: "

// idlePoll is how long a worker goroutine sleeps after finding its
// queue empty, matching §4.3's "5 ms sleep when idle".
const idlePoll = 5 * time.Millisecond

// OpenFunc resolves a Name to its on-disk asset file. The manager
// treats name resolution as a black-box collaborator (a pack archive,
// a loose-file directory, a network fetch) rather than a fixed
// format, since only the bytes it returns are specified by §4.3.
type OpenFunc func(Name) (io.ReadCloser, error)

// Manager is the engine's asset index and load pipeline: a
// concurrent hash index of Records, a scheme registry, and the
// queues connecting disk-IO, decompression, per-scheme custom-load
// threads and the control thread, per §4.3/§5.
type Manager struct {
	mu      sync.Mutex
	byName  map[Name]*Record
	byIntl  map[Name]map[Name]struct{}
	schemes map[uint16]Scheme

	nThreads int
	open     OpenFunc

	loadFile   recQueue
	decompress recQueue
	addDeps    recQueue
	waitDeps   recQueue
	removeDeps recQueue
	customLoad []recQueue
	customDone []recQueue

	destroying atomic.Bool
	group      errgroup.Group

	listener *hotReloadListener
}

// New returns a Manager with nThreads custom-load/custom-done queue
// pairs (one per pipeline stage a scheme can be bound to — see
// pipeline.ControlThread.. SoundThread) and open used to resolve an
// asset Name to its on-disk bytes.
func New(nThreads int, open OpenFunc) *Manager {
	return &Manager{
		byName:     map[Name]*Record{},
		byIntl:     map[Name]map[Name]struct{}{},
		schemes:    map[uint16]Scheme{},
		nThreads:   nThreads,
		open:       open,
		customLoad: make([]recQueue, nThreads),
		customDone: make([]recQueue, nThreads),
	}
}

// Start launches the two owned worker goroutines (disk-IO,
// decompression). Their lifecycle is managed with
// golang.org/x/sync/errgroup purely for the Go/Wait bookkeeping; both
// loops always return nil, since the propagation policy for the asset
// pipeline (§7) is to record errors on the Record and continue, never
// to abort the worker.
func (m *Manager) Start() {
	m.group.Go(func() error { m.diskIOLoop(); return nil })
	m.group.Go(func() error { m.decompressLoop(); return nil })
}

// Close signals destroying, closes the hot-reload listener if one is
// open, and waits for both owned worker goroutines to exit.
func (m *Manager) Close() error {
	m.destroying.Store(true)
	if m.listener != nil {
		m.listener.close()
	}
	return m.group.Wait()
}

// CountTotal returns the number of records currently in the index.
func (m *Manager) CountTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byName)
}

func (m *Manager) lookup(name Name) (*Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	return r, ok
}

// ResolveIntl returns every ready record currently published under
// the internationalized name intl — the alias is ambiguous by
// design (the same logical asset resolved differently per locale),
// so callers get the whole set rather than a single pick. It is
// populated as records finish loading (tryFinishWait) and pruned as
// they are fully removed (finishRemoval), so an internationalized
// name is resolvable through it for exactly as long as any
// referencing record exists.
func (m *Manager) ResolveIntl(intl Name) []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.byIntl[intl]
	if !ok {
		return nil
	}
	recs := make([]*Record, 0, len(set))
	for name := range set {
		if rec, ok := m.byName[name]; ok {
			recs = append(recs, rec)
		}
	}
	return recs
}

// Add increments name's reference count, creating and beginning to
// load a new record if none exists yet.
func (m *Manager) Add(name Name) *Record {
	m.mu.Lock()
	rec, existed := m.byName[name]
	if !existed {
		rec = newRecord(name, "")
		m.byName[name] = rec
	}
	m.mu.Unlock()

	rec.mu.Lock()
	rec.refs++
	if !existed {
		rec.status = statusProcessing
	}
	rec.mu.Unlock()

	if !existed {
		m.loadFile.push(rec)
	}
	return rec
}

// AddByTextName hashes textName and calls Add.
func (m *Manager) AddByTextName(textName string) *Record {
	return m.Add(Hash(textName))
}

// Fabricate registers a record whose content will be published
// directly via Set rather than through the load pipeline.
func (m *Manager) Fabricate(scheme uint16, name Name, textName string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[name]; exists {
		return nil, fmt.Errorf("%w: asset %v already exists", ErrInvalidState, name)
	}
	rec := newRecord(name, textName)
	rec.Scheme = scheme
	rec.status = statusFabricated | statusReady
	rec.refs = 1
	m.byName[name] = rec
	return rec, nil
}

// Set publishes data on a fabricated record.
func (m *Manager) Set(name Name, data any) error {
	rec, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: Set on unknown asset", ErrInvalidState)
	}
	if !rec.Fabricated() {
		return fmt.Errorf("%w: Set on a non-fabricated asset", ErrInvalidState)
	}
	rec.mu.Lock()
	rec.data = data
	rec.mu.Unlock()
	return nil
}

// Remove decrements name's reference count, beginning removal once it
// reaches zero. Removing by an internationalized name is not
// supported — callers must use the record's real Name.
func (m *Manager) Remove(name Name) error {
	rec, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: remove of unknown asset", ErrInvalidState)
	}

	rec.mu.Lock()
	rec.refs--
	refs := rec.refs
	fab := rec.status&statusFabricated != 0
	scheme := rec.Scheme
	rec.mu.Unlock()

	if refs > 0 {
		return nil
	}
	if refs < 0 {
		return fmt.Errorf("%w: reference count underflow", ErrInvalidState)
	}

	m.mu.Lock()
	sch, hasScheme := m.schemes[scheme]
	m.mu.Unlock()

	if fab || !hasScheme || sch.Done == nil {
		m.removeDeps.push(rec)
	} else {
		m.customDone[sch.ThreadIndex].push(rec)
	}
	return nil
}

// Reload re-enqueues name for loading. If recursive, every current
// dependency is reloaded too.
func (m *Manager) Reload(name Name, recursive bool) error {
	rec, ok := m.lookup(name)
	if !ok {
		return fmt.Errorf("%w: reload of unknown asset", ErrInvalidState)
	}
	if rec.Fabricated() {
		return fmt.Errorf("%w: cannot reload a fabricated asset", ErrInvalidState)
	}

	if recursive {
		rec.mu.Lock()
		deps := make([]Name, 0, len(rec.deps))
		for d := range rec.deps {
			deps = append(deps, d)
		}
		rec.mu.Unlock()
		for _, d := range deps {
			m.Reload(d, true)
		}
	}

	rec.mu.Lock()
	rec.status = statusProcessing
	rec.mu.Unlock()
	m.loadFile.push(rec)
	return nil
}

// ProcessControlThread drains one pending unit of index-mutating work
// (dependency resolution, wait-for-dependencies, or final removal),
// reporting whether there was anything to do. It implements
// pipeline.AssetDrainer and must only ever be called from the control
// stage, per §5's "all index inserts/erases happen in
// processControlThread".
func (m *Manager) ProcessControlThread() bool {
	if rec, ok := m.addDeps.pop(); ok {
		m.resolveDependencies(rec)
		return true
	}
	if rec, ok := m.waitDeps.pop(); ok {
		m.tryFinishWait(rec)
		return true
	}
	if rec, ok := m.removeDeps.pop(); ok {
		m.finishRemoval(rec)
		return true
	}
	return false
}

// ProcessCustomThread drains one pending unit of custom-load or
// custom-done work bound to threadIndex, reporting whether there was
// anything to do. It implements pipeline.AssetDrainer.
func (m *Manager) ProcessCustomThread(threadIndex int) bool {
	if rec, ok := m.customLoad[threadIndex].pop(); ok {
		m.runLoad(rec)
		return true
	}
	if rec, ok := m.customDone[threadIndex].pop(); ok {
		m.runDone(rec)
		return true
	}
	return false
}

func (m *Manager) runLoad(rec *Record) {
	m.mu.Lock()
	sch, hasScheme := m.schemes[rec.Scheme]
	m.mu.Unlock()

	rec.mu.Lock()
	body := rec.pendingBody
	rec.mu.Unlock()

	var data any
	var err error
	if hasScheme && sch.Load != nil {
		data, err = sch.Load(rec, body)
	} else {
		err = fmt.Errorf("%w: no loader for scheme %d", ErrInvalidState, rec.Scheme)
	}

	rec.mu.Lock()
	if err != nil {
		log.Printf(prefix+"custom load of %q failed: %v", rec.TextName, err)
		rec.status |= statusError
	} else {
		rec.data = data
	}
	rec.pendingBody = nil
	rec.mu.Unlock()

	m.waitDeps.push(rec)
}

func (m *Manager) runDone(rec *Record) {
	m.mu.Lock()
	sch, hasScheme := m.schemes[rec.Scheme]
	m.mu.Unlock()
	if hasScheme && sch.Done != nil {
		sch.Done(rec.Data())
	}
	m.removeDeps.push(rec)
}

func (m *Manager) resolveDependencies(rec *Record) {
	rec.mu.Lock()
	newDeps := rec.newDeps
	oldDeps := rec.deps
	rec.mu.Unlock()

	for d := range newDeps {
		m.Add(d)
	}
	for d := range oldDeps {
		if _, still := newDeps[d]; !still {
			m.Remove(d)
		}
	}

	rec.mu.Lock()
	rec.deps = newDeps
	rec.newDeps = nil
	rec.status |= statusDepsResolved
	rec.mu.Unlock()
}

func (m *Manager) tryFinishWait(rec *Record) {
	rec.mu.Lock()
	resolved := rec.status&statusDepsResolved != 0
	deps := rec.deps
	rec.mu.Unlock()

	if !resolved || !depsReadyOrError(deps, m.lookup) {
		m.waitDeps.push(rec)
		return
	}

	rec.mu.Lock()
	rec.status = (rec.status &^ statusProcessing) | statusReady
	intl := rec.IntlName
	name := rec.Name
	rec.mu.Unlock()

	if intl != 0 {
		m.mu.Lock()
		set := m.byIntl[intl]
		if set == nil {
			set = map[Name]struct{}{}
			m.byIntl[intl] = set
		}
		set[name] = struct{}{}
		m.mu.Unlock()
	}
}

func (m *Manager) finishRemoval(rec *Record) {
	rec.mu.Lock()
	deps := rec.deps
	rec.mu.Unlock()
	for d := range deps {
		m.Remove(d)
	}

	rec.mu.Lock()
	refs := rec.refs
	rec.mu.Unlock()

	if refs > 0 {
		rec.mu.Lock()
		rec.status = statusProcessing
		rec.deps = nil
		rec.mu.Unlock()
		m.loadFile.push(rec)
		return
	}

	m.mu.Lock()
	delete(m.byName, rec.Name)
	if rec.IntlName != 0 {
		if set, ok := m.byIntl[rec.IntlName]; ok {
			delete(set, rec.Name)
			if len(set) == 0 {
				delete(m.byIntl, rec.IntlName)
			}
		}
	}
	m.mu.Unlock()
}

func (m *Manager) diskIOLoop() {
	for !m.destroying.Load() {
		rec, ok := m.loadFile.pop()
		if !ok {
			time.Sleep(idlePoll)
			continue
		}
		m.loadOne(rec)
	}
}

func (m *Manager) loadOne(rec *Record) {
	rc, err := m.open(rec.Name)
	if err != nil {
		m.failLoad(rec, err)
		return
	}
	defer rc.Close()

	m.mu.Lock()
	schemeCount := len(m.schemes)
	m.mu.Unlock()

	d, err := readAsset(rc, schemeCount)
	if err != nil {
		m.failLoad(rec, err)
		return
	}

	rec.mu.Lock()
	rec.Scheme = d.scheme
	rec.Flags = d.flags
	rec.IntlName = d.intlName
	if rec.TextName == "" {
		rec.TextName = d.textName
	}
	rec.newDeps = make(map[Name]struct{}, len(d.deps))
	for _, dep := range d.deps {
		rec.newDeps[dep] = struct{}{}
	}
	rec.pendingBody = d.body
	rec.mu.Unlock()

	m.addDeps.push(rec)

	if d.compressed() {
		m.decompress.push(rec)
		return
	}
	m.mu.Lock()
	sch, ok := m.schemes[d.scheme]
	m.mu.Unlock()
	if !ok {
		m.failLoad(rec, fmt.Errorf("%w: no scheme registered for index %d", ErrInvalidState, d.scheme))
		return
	}
	m.customLoad[sch.ThreadIndex].push(rec)
}

func (m *Manager) failLoad(rec *Record, err error) {
	log.Printf(prefix+"load of %q failed, marking error: %v", rec.TextName, err)
	rec.mu.Lock()
	rec.status |= statusError | statusDepsResolved
	rec.newDeps = map[Name]struct{}{}
	rec.mu.Unlock()
	m.waitDeps.push(rec)
}

func (m *Manager) decompressLoop() {
	for !m.destroying.Load() {
		rec, ok := m.decompress.pop()
		if !ok {
			time.Sleep(idlePoll)
			continue
		}
		m.decompressOne(rec)
	}
}

func (m *Manager) decompressOne(rec *Record) {
	rec.mu.Lock()
	body := rec.pendingBody
	scheme := rec.Scheme
	rec.mu.Unlock()

	data, err := gunzip(body)
	if err != nil {
		m.failLoad(rec, err)
		return
	}

	rec.mu.Lock()
	rec.pendingBody = newBytesReader(data)
	rec.mu.Unlock()

	m.mu.Lock()
	sch, ok := m.schemes[scheme]
	m.mu.Unlock()
	if !ok {
		m.failLoad(rec, fmt.Errorf("%w: no scheme registered for index %d", ErrInvalidState, scheme))
		return
	}
	m.customLoad[sch.ThreadIndex].push(rec)
}
