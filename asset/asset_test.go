// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kestrel3d/kestrel/kerr"
)

// buildAsset encodes one on-disk asset blob per §4.3's fixed layout,
// for tests that need a real byte stream to feed readAsset/Manager.
func buildAsset(t *testing.T, scheme uint16, textName string, payload []byte, deps []Name, compress bool) []byte {
	t.Helper()
	body := payload
	flags := uint32(0)
	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			t.Fatal(err)
		}
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
		body = buf.Bytes()
		flags = flagCompressed
	}

	var hdr header
	copy(hdr.Magic[:], magic)
	hdr.Version = currentVersion
	hdr.Flags = flags
	hdr.Scheme = scheme
	hdr.DepCount = uint32(len(deps))
	hdr.CompressedSize = uint32(len(body))
	hdr.OriginalSize = uint32(len(payload))
	if len(textName) >= textNameSize {
		t.Fatalf("text name %q too long for test fixture", textName)
	}
	copy(hdr.TextName[:], textName)

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}
	for _, d := range deps {
		binary.Write(&out, binary.LittleEndian, uint32(d))
	}
	out.Write(body)
	return out.Bytes()
}

// buildAssetIntl is buildAsset plus an internationalized-name field,
// for tests exercising Manager.ResolveIntl.
func buildAssetIntl(t *testing.T, textName string, intl Name, payload []byte) []byte {
	t.Helper()
	var hdr header
	copy(hdr.Magic[:], magic)
	hdr.Version = currentVersion
	hdr.Scheme = SchemeRaw
	hdr.IntlName = uint32(intl)
	hdr.OriginalSize = uint32(len(payload))
	hdr.CompressedSize = uint32(len(payload))
	if len(textName) >= textNameSize {
		t.Fatalf("text name %q too long for test fixture", textName)
	}
	copy(hdr.TextName[:], textName)

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}
	out.Write(payload)
	return out.Bytes()
}

type memFile struct{ *bytes.Reader }

func (memFile) Close() error { return nil }

func memOpener(files map[Name][]byte) OpenFunc {
	return func(n Name) (io.ReadCloser, error) {
		b, ok := files[n]
		if !ok {
			return nil, errors.New("asset: no such test fixture")
		}
		return memFile{bytes.NewReader(b)}, nil
	}
}

func rawEchoScheme(threadIndex int) Scheme {
	return Scheme{
		Index:       SchemeRaw,
		ThreadIndex: threadIndex,
		Load: func(rec *Record, body io.Reader) (any, error) {
			return io.ReadAll(body)
		},
	}
}

func TestAssetReferenceCountingScenario(t *testing.T) {
	name := Hash("X")
	files := map[Name][]byte{
		name: buildAsset(t, SchemeRaw, "X", []byte("hello"), nil, false),
	}
	m := New(1, memOpener(files))
	if err := m.RegisterScheme(rawEchoScheme(0)); err != nil {
		t.Fatal(err)
	}
	m.Start()
	defer m.Close()

	m.Add(name)
	m.Add(name)
	drainUntilSettled(m, 1)

	if err := m.Remove(name); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)
	if got := m.CountTotal(); got != 1 {
		t.Fatalf("CountTotal() after one remove = %d, want 1", got)
	}

	if err := m.Remove(name); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)
	if got := m.CountTotal(); got != 0 {
		t.Fatalf("CountTotal() after both removes = %d, want 0", got)
	}
}

func TestResolveIntlFindsAndPrunesAliasedRecords(t *testing.T) {
	intl := Hash("greeting")
	nameEn := Hash("greeting/en")
	nameFr := Hash("greeting/fr")
	files := map[Name][]byte{
		nameEn: buildAssetIntl(t, "greeting/en", intl, []byte("hello")),
		nameFr: buildAssetIntl(t, "greeting/fr", intl, []byte("bonjour")),
	}
	m := New(1, memOpener(files))
	if err := m.RegisterScheme(rawEchoScheme(0)); err != nil {
		t.Fatal(err)
	}
	m.Start()
	defer m.Close()

	m.Add(nameEn)
	m.Add(nameFr)
	drainUntilSettled(m, 1)

	recs := m.ResolveIntl(intl)
	if len(recs) != 2 {
		t.Fatalf("ResolveIntl: got %d records, want 2", len(recs))
	}
	seen := map[Name]bool{}
	for _, r := range recs {
		seen[r.Name] = true
	}
	if !seen[nameEn] || !seen[nameFr] {
		t.Fatalf("ResolveIntl: missing an expected alias target, got %v", recs)
	}

	if err := m.Remove(nameEn); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)
	if recs := m.ResolveIntl(intl); len(recs) != 1 || recs[0].Name != nameFr {
		t.Fatalf("ResolveIntl after one removal = %v, want just %v", recs, nameFr)
	}

	if err := m.Remove(nameFr); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)
	if recs := m.ResolveIntl(intl); len(recs) != 0 {
		t.Fatalf("ResolveIntl after both removed = %v, want none", recs)
	}
}

// drainUntilSettled polls the pipeline for a generous but bounded
// number of rounds, enough for a single small asset's full load or
// removal chain to clear on a busy CI machine.
func drainUntilSettled(m *Manager, nThreads int) {
	for i := 0; i < 2000; i++ {
		did := m.ProcessControlThread()
		for t := 0; t < nThreads; t++ {
			if m.ProcessCustomThread(t) {
				did = true
			}
		}
		if !did {
			time.Sleep(200 * time.Microsecond)
		}
	}
}

func TestAddLoadsAssetAndPublishesData(t *testing.T) {
	name := Hash("mesh/box")
	files := map[Name][]byte{
		name: buildAsset(t, SchemeRaw, "mesh/box", []byte("vertices"), nil, false),
	}
	m := New(1, memOpener(files))
	m.RegisterScheme(rawEchoScheme(0))
	m.Start()
	defer m.Close()

	rec := m.Add(name)
	drainUntilSettled(m, 1)

	if !rec.Ready() {
		t.Fatalf("record not Ready after drain (error=%v)", rec.Error())
	}
	data, _ := Get[[]byte](m, name)
	if string(data) != "vertices" {
		t.Fatalf("published data = %q, want %q", data, "vertices")
	}
}

func TestCompressedAssetDecompressesBeforeLoad(t *testing.T) {
	name := Hash("tex/a")
	files := map[Name][]byte{
		name: buildAsset(t, SchemeRaw, "tex/a", []byte("pixel-data-pixel-data"), nil, true),
	}
	m := New(1, memOpener(files))
	m.RegisterScheme(rawEchoScheme(0))
	m.Start()
	defer m.Close()

	rec := m.Add(name)
	drainUntilSettled(m, 1)

	if !rec.Ready() {
		t.Fatalf("record not Ready (error=%v)", rec.Error())
	}
	data, _ := Get[[]byte](m, name)
	if string(data) != "pixel-data-pixel-data" {
		t.Fatalf("decompressed data = %q", data)
	}
}

func TestMissingFileMarksErrorAndStillReachesReady(t *testing.T) {
	name := Hash("nope")
	m := New(1, memOpener(map[Name][]byte{}))
	m.RegisterScheme(rawEchoScheme(0))
	m.Start()
	defer m.Close()

	rec := m.Add(name)
	drainUntilSettled(m, 1)

	if !rec.Error() {
		t.Fatal("expected Error on missing asset")
	}
	if rec.Processing() {
		t.Fatal("record still Processing after error path should have reached WAIT_DEPENDENCIES")
	}
}

func TestDependenciesAreAcquiredAndReleased(t *testing.T) {
	parent := Hash("parent")
	child := Hash("child")
	files := map[Name][]byte{
		parent: buildAsset(t, SchemeRaw, "parent", []byte("p"), []Name{child}, false),
		child:  buildAsset(t, SchemeRaw, "child", []byte("c"), nil, false),
	}
	m := New(1, memOpener(files))
	m.RegisterScheme(rawEchoScheme(0))
	m.Start()
	defer m.Close()

	m.Add(parent)
	drainUntilSettled(m, 1)

	childRec, ok := m.lookup(child)
	if !ok {
		t.Fatal("dependency was never added to the index")
	}
	if !childRec.Ready() {
		t.Fatalf("dependency never became ready (error=%v)", childRec.Error())
	}
	if got := childRec.References(); got != 1 {
		t.Fatalf("dependency refcount = %d, want 1 (held by parent)", got)
	}

	if err := m.Remove(parent); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)

	if m.CountTotal() != 0 {
		t.Fatalf("CountTotal() = %d after parent+child fully removed, want 0", m.CountTotal())
	}
}

func TestFabricateBypassesLoadPipelineAndSkipsDoneOnRemove(t *testing.T) {
	name := Hash("runtime/thing")
	m := New(1, memOpener(nil))
	doneCalled := false
	m.RegisterScheme(Scheme{Index: SchemeObject, ThreadIndex: 0, Done: func(any) { doneCalled = true }})
	m.Start()
	defer m.Close()

	rec, err := m.Fabricate(SchemeObject, name, "runtime/thing")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Fabricated() || !rec.Ready() {
		t.Fatal("fabricated record should be immediately Fabricated and Ready")
	}
	if err := m.Set(name, 42); err != nil {
		t.Fatal(err)
	}
	v, _ := Get[int](m, name)
	if v != 42 {
		t.Fatalf("Get after Set = %d, want 42", v)
	}

	if err := m.Remove(name); err != nil {
		t.Fatal(err)
	}
	drainUntilSettled(m, 1)
	if doneCalled {
		t.Fatal("scheme Done must not run for a fabricated record")
	}
	if m.CountTotal() != 0 {
		t.Fatal("fabricated record not removed from index")
	}
}

func TestSchemeDataTypeMismatchIsRejectedAtGet(t *testing.T) {
	m := New(1, memOpener(nil))
	name := Hash("typed")
	m.RegisterScheme(Scheme{Index: SchemeObject, ThreadIndex: 0, DataType: reflect.TypeOf("")})
	if _, err := m.Fabricate(SchemeObject, name, "typed"); err != nil {
		t.Fatal(err)
	}
	m.Set(name, "a string")

	if v, err := Get[string](m, name); err != nil || v != "a string" {
		t.Fatalf("Get[string] = (%q,%v), want (\"a string\",nil)", v, err)
	}
	if _, err := Get[int](m, name); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Get[int] against a string-typed scheme: err = %v, want ErrInvalidState", err)
	}
}

func TestHeaderValidationRejectsBadInput(t *testing.T) {
	good := buildAsset(t, SchemeRaw, "ok", []byte("x"), nil, false)

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 'Z'
	if _, err := readAsset(bytes.NewReader(badMagic), 8); !errors.Is(err, kerr.ErrFormatError) {
		t.Fatalf("bad magic: err = %v, want kerr.ErrFormatError", err)
	}

	badScheme := buildAsset(t, 200, "ok", []byte("x"), nil, false)
	if _, err := readAsset(bytes.NewReader(badScheme), 8); !errors.Is(err, kerr.ErrFormatError) {
		t.Fatalf("out-of-range scheme: err = %v, want kerr.ErrFormatError", err)
	}

	truncated := good[:len(good)-1]
	if _, err := readAsset(bytes.NewReader(truncated), 8); !errors.Is(err, kerr.ErrNotEnoughData) {
		t.Fatalf("truncated body: err = %v, want kerr.ErrNotEnoughData", err)
	}
}

func TestHotReloadUnreferencedAssetIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	m := New(1, memOpener(nil))
	m.hotReloadOne("unknown-thing")

	if !strings.Contains(buf.String(), "will not be hot-reloaded") {
		t.Fatalf("log output = %q, want a will-not-be-hot-reloaded line", buf.String())
	}
}

func TestListenHotReloadsAReferencedAsset(t *testing.T) {
	name := Hash("hot")
	files := map[Name][]byte{
		name: buildAsset(t, SchemeRaw, "hot", []byte("v1"), nil, false),
	}
	m := New(1, memOpener(files))
	m.RegisterScheme(rawEchoScheme(0))
	m.Start()
	defer m.Close()

	m.Add(name)
	drainUntilSettled(m, 1)

	if err := m.Listen("127.0.0.1", 0); err != nil {
		t.Fatal(err)
	}
	addr := m.listener.ln.Addr().String()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write([]byte("hot\n")); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	// Give the accept/scan goroutine a moment to process the line
	// and enqueue the reload before draining.
	time.Sleep(50 * time.Millisecond)
	drainUntilSettled(m, 1)

	rec, _ := m.lookup(name)
	if !rec.Ready() {
		t.Fatal("asset not Ready after hot-reload round-trip")
	}
}

func TestCyclicDependencyStallsOnlyThatComponent(t *testing.T) {
	m := New(1, memOpener(nil))
	a := Hash("a")
	b := Hash("b")

	recA := newRecord(a, "a")
	recB := newRecord(b, "b")
	recA.deps = map[Name]struct{}{b: {}}
	recB.deps = map[Name]struct{}{a: {}}
	recA.status = statusProcessing | statusDepsResolved
	recB.status = statusProcessing | statusDepsResolved

	m.mu.Lock()
	m.byName[a] = recA
	m.byName[b] = recB
	m.mu.Unlock()

	m.waitDeps.push(recA)
	m.waitDeps.push(recB)

	for i := 0; i < 50; i++ {
		m.ProcessControlThread()
		m.ProcessControlThread()
	}

	if recA.Ready() || recB.Ready() {
		t.Fatal("a genuine dependency cycle must never resolve to Ready")
	}
	if recA.Error() || recB.Error() {
		t.Fatal("a genuine dependency cycle must not be reported as Error either")
	}
	if m.CountTotal() != 2 {
		t.Fatalf("CountTotal() = %d, want 2 (neither record destroyed)", m.CountTotal())
	}
}
