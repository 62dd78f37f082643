package check

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func pass(output string) Func {
	return func(ctx context.Context) (string, error) {
		return output, nil
	}
}

func fail(err error) Func {
	return func(ctx context.Context) (string, error) {
		return "", err
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Lint, pass("")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Lint, pass("")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestNamesPreserveOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{Test, Audit, Lint} {
		if err := r.Register(name, pass("")); err != nil {
			t.Fatal(err)
		}
	}

	names := r.Names()
	if names[0] != Test || names[1] != Audit || names[2] != Lint {
		t.Fatalf("names = %v, want registration order", names)
	}
}

func TestRunAll(t *testing.T) {
	r := NewRegistry()
	r.Register(Lint, pass("clean"))
	r.Register(Test, pass("42 tests"))

	results := r.RunAll(context.Background(), "linux/amd64")

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Name != Lint || results[0].Output != "clean" {
		t.Fatalf("results[0] = %+v, want lint/clean", results[0])
	}
	if results[1].Platform != "linux/amd64" {
		t.Fatalf("platform = %q, want linux/amd64", results[1].Platform)
	}
	for _, res := range results {
		if !res.Passed() {
			t.Fatalf("%s failed unexpectedly: %v", res.Name, res.Err)
		}
	}
}

func TestRunAllNoShortCircuit(t *testing.T) {
	var ran atomic.Int32
	boom := errors.New("lint found problems")

	r := NewRegistry()
	r.Register(Lint, fail(boom))
	r.Register(Test, func(ctx context.Context) (string, error) {
		// Give the failing check a head start; this one must still run.
		time.Sleep(20 * time.Millisecond)
		ran.Add(1)
		return "ok", nil
	})
	r.Register(Audit, func(ctx context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		ran.Add(1)
		return "ok", nil
	})

	results := r.RunAll(context.Background(), "linux/amd64")

	if ran.Load() != 2 {
		t.Fatalf("ran = %d, want 2 (failure must not cancel siblings)", ran.Load())
	}
	if !errors.Is(results[0].Err, boom) {
		t.Fatalf("results[0].Err = %v, want recorded failure", results[0].Err)
	}
	if !results[1].Passed() || !results[2].Passed() {
		t.Fatal("sibling checks did not complete cleanly")
	}
}

func TestErr(t *testing.T) {
	results := []Result{
		{Name: Lint, Platform: "linux/amd64"},
		{Name: Test, Platform: "linux/amd64"},
	}
	if err := Err(results); err != nil {
		t.Fatalf("all-pass results produced error: %v", err)
	}

	results[1].Err = errors.New("2 tests failed")
	err := Err(results)
	if !errors.Is(err, ErrChecksFailed) {
		t.Fatalf("err = %v, want ErrChecksFailed", err)
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	r.Register(Lint, pass("clean"))

	if _, ok := r.Get(Lint); !ok {
		t.Fatal("registered check not found")
	}
	if _, ok := r.Get("bogus"); ok {
		t.Fatal("unknown check found")
	}
}
