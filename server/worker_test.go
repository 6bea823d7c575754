package server

import (
	"strings"
	"testing"

	"github.com/chazu/baraco/vm"
)

func TestRunWorkerRecoversPanics(t *testing.T) {
	w := NewRunWorker(vm.NewManager())
	defer w.Stop()

	err := w.Do(func(*vm.Manager) error { panic("boom") })
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Do err = %v, want the panic", err)
	}

	// The worker keeps serving after a panic.
	called := false
	if err := w.Do(func(m *vm.Manager) error {
		called = m == w.Manager()
		return nil
	}); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
	if !called {
		t.Error("second request did not run against the worker's manager")
	}
}

func TestRunWorkerSerializes(t *testing.T) {
	w := NewRunWorker(vm.NewManager())
	defer w.Stop()

	var order []int
	var chans []<-chan error
	for i := 0; i < 5; i++ {
		i := i
		chans = append(chans, w.Go(func(*vm.Manager) error {
			order = append(order, i)
			return nil
		}))
	}
	for _, ch := range chans {
		if err := <-ch; err != nil {
			t.Fatal(err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want submission order", order)
		}
	}
}
