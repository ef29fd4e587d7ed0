// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modboot/internal/lifecycle"
)

func TestInvoke(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	r.Register("org.example.Foo", "boot", ActivatableFunc(func(context.Context) error {
		calls++
		return nil
	}))

	if err := r.Invoke(context.Background(), "org.example.Foo", "boot"); err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInvoke_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("Fails", "boot", ActivatableFunc(func(context.Context) error { return boom }))
	r.Register("Panics", "boot", ActivatableFunc(func(context.Context) error { panic("kaput") }))

	tests := []struct {
		unit, method string
		cause        error
	}{
		{"Missing", "boot", ErrNoEntry},
		{"Fails", "start", ErrNoEntry},
		{"Fails", "boot", boom},
		{"Panics", "boot", nil},
	}
	for _, tt := range tests {
		err := r.Invoke(context.Background(), tt.unit, tt.method)
		if !errors.Is(err, ErrEntryInvocation) {
			t.Errorf("Invoke(%s.%s) error = %v, want ErrEntryInvocation", tt.unit, tt.method, err)
			continue
		}
		var ee *EntryInvocationError
		if !errors.As(err, &ee) || ee.Unit != tt.unit || ee.Method != tt.method {
			t.Errorf("EntryInvocationError = %+v", ee)
		}
		if tt.cause != nil && !errors.Is(err, tt.cause) {
			t.Errorf("Invoke(%s.%s) cause = %v, want %v", tt.unit, tt.method, err, tt.cause)
		}
	}
}

func TestAwaken_OncePerUnit(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	seq := lifecycle.NewSequencer()
	var order []string
	r.RegisterAwakener("b.Hook", AwakenerFunc(func(reg lifecycle.Registrar) {
		reg.Register(lifecycle.Enable, func() { order = append(order, "b-enable") })
	}))
	r.RegisterAwakener("a.Hook", AwakenerFunc(func(lifecycle.Registrar) {
		order = append(order, "a-awake")
	}))

	ran := r.Awaken([]string{"a.Hook", "x.Plain", "b.Hook"}, seq)
	if diff := cmp.Diff([]string{"a.Hook", "b.Hook"}, ran); diff != "" {
		t.Errorf("awakened mismatch (-want +got):\n%s", diff)
	}
	if again := r.Awaken([]string{"a.Hook"}, seq); len(again) != 0 {
		t.Errorf("awakener ran twice: %v", again)
	}

	seq.Fire(lifecycle.Enable)
	if diff := cmp.Diff([]string{"a-awake", "b-enable"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

type closer struct {
	name string
	log  *[]string
}

func (c *closer) Release() { *c.log = append(*c.log, c.name) }

func TestServices(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var released []string
	if err := r.RegisterService("db", &closer{name: "db", log: &released}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterService("plain", 42); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterService("cache", &closer{name: "cache", log: &released}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterService("db", "again"); !errors.Is(err, ErrDuplicateService) {
		t.Errorf("duplicate RegisterService error = %v", err)
	}

	n, ok := ServiceAs[int](r, "plain")
	if !ok || n != 42 {
		t.Errorf("ServiceAs[int] = %v, %v", n, ok)
	}
	if _, ok := ServiceAs[string](r, "plain"); ok {
		t.Error("ServiceAs with wrong type succeeded")
	}

	seq := lifecycle.NewSequencer()
	r.Bind(seq)
	seq.Stop()
	seq.Fire(lifecycle.Disable)

	if diff := cmp.Diff([]string{"cache", "db"}, released); diff != "" {
		t.Errorf("release order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := r.Service("db"); ok {
		t.Error("service still registered after release")
	}
}

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	Register("modboot.test.DefaultHook", "boot", ActivatableFunc(func(context.Context) error { return nil }))
	if _, ok := Default.Lookup("modboot.test.DefaultHook", "boot"); !ok {
		t.Error("package-level Register did not reach Default")
	}
}
