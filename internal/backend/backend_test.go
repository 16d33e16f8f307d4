package backend

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/falcon-lang/falcon/internal/cache"
	"github.com/falcon-lang/falcon/internal/config"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/parser"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

func execute(t *testing.T, b Backend, source string) *pipeline.PipelineContext {
	t.Helper()
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = "test.fn"
	p := pipeline.New(
		lexer.NewLexerProcessor(),
		parser.NewParserProcessor(),
		NewExecutionProcessor(b),
	)
	return p.Run(ctx)
}

func newTestBuiltins(t *testing.T) (*evaluator.Builtins, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return evaluator.NewBuiltins(&out, t.TempDir()), &out
}

func TestBothBackendsRunTheSameProgram(t *testing.T) {
	src := `
function makeCounter() {
	var count := 0
	return function() {
		count = count + 1
		return count
	}
}
counter := makeCounter()
for var i := 0 to 2 { show(counter()) }
`
	want := "1\n2\n3\n"

	for _, name := range []string{config.BackendTreeWalk, config.BackendVM} {
		t.Run(name, func(t *testing.T) {
			builtins, out := newTestBuiltins(t)
			cfg := config.Default()
			cfg.Backend = name
			b := Select(cfg, builtins, nil)
			ctx := execute(t, b, src)
			if ctx.HasErrors() {
				t.Fatalf("errors: %v", ctx.Errors[0])
			}
			if out.String() != want {
				t.Errorf("output = %q, want %q", out.String(), want)
			}
		})
	}
}

func TestRuntimeErrorBecomesDiagnostic(t *testing.T) {
	builtins, _ := newTestBuiltins(t)
	b := NewBytecode(builtins, nil)
	ctx := execute(t, b, `show(1 / 0)`)
	if !ctx.HasErrors() {
		t.Fatal("expected an error diagnostic")
	}
	if ctx.Errors[0].File != "test.fn" {
		t.Errorf("error file = %q, want test.fn", ctx.Errors[0].File)
	}
}

func TestParseErrorSkipsExecution(t *testing.T) {
	builtins, out := newTestBuiltins(t)
	b := NewTreeWalk(builtins)
	ctx := execute(t, b, `show(`)
	if !ctx.HasErrors() {
		t.Fatal("expected a parse error")
	}
	if out.Len() != 0 {
		t.Errorf("execution produced output despite parse error: %q", out.String())
	}
}

func TestBytecodeCachesChunks(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	src := `show("cached")` + "\n"

	builtins, out := newTestBuiltins(t)
	b := NewBytecode(builtins, store)
	if ctx := execute(t, b, src); ctx.HasErrors() {
		t.Fatalf("first run: %v", ctx.Errors[0])
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Fatalf("cache holds %d chunks after first run, want 1", n)
	}

	// A second process serves the chunk from the cache.
	builtins2, out2 := newTestBuiltins(t)
	b2 := NewBytecode(builtins2, store)
	if ctx := execute(t, b2, src); ctx.HasErrors() {
		t.Fatalf("second run: %v", ctx.Errors[0])
	}
	if out.String() != out2.String() {
		t.Errorf("cached run output %q differs from fresh %q", out2.String(), out.String())
	}
	n, err = store.Len()
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Errorf("cache holds %d chunks after second run, want 1", n)
	}
}

func TestCorruptCacheEntryRecompiles(t *testing.T) {
	store, err := cache.Open(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer store.Close()

	src := `show("resilient")` + "\n"
	key := cache.Fingerprint([]byte(src))
	if err := store.Put(key, []byte("not a chunk")); err != nil {
		t.Fatalf("put: %v", err)
	}

	builtins, out := newTestBuiltins(t)
	b := NewBytecode(builtins, store)
	if ctx := execute(t, b, src); ctx.HasErrors() {
		t.Fatalf("run: %v", ctx.Errors[0])
	}
	if out.String() != "resilient\n" {
		t.Errorf("output = %q", out.String())
	}

	// The bad entry was overwritten with a decodable chunk.
	data, found, err := store.Get(key)
	if err != nil || !found {
		t.Fatalf("get after recompile: found=%t err=%v", found, err)
	}
	if string(data[:4]) != "FNBC" {
		t.Errorf("cache entry not refreshed: %q", data[:4])
	}
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	builtins, out := newTestBuiltins(t)
	b := NewBytecode(builtins, nil)
	if ctx := execute(t, b, `var total := 10`); ctx.HasErrors() {
		t.Fatalf("first run: %v", ctx.Errors[0])
	}
	if ctx := execute(t, b, `show(total + 5)`); ctx.HasErrors() {
		t.Fatalf("second run: %v", ctx.Errors[0])
	}
	if out.String() != "15\n" {
		t.Errorf("output = %q, want 15", out.String())
	}
}
