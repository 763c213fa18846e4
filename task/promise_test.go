package task

import (
	"errors"
	"sync"
	"testing"
)

func TestPromiseResolveOnce(t *testing.T) {
	p := NewSettablePromise[int]()

	if !p.Resolve(1) {
		t.Fatal("first Resolve should succeed")
	}
	if p.Resolve(2) {
		t.Fatal("second Resolve should be a no-op")
	}
	if p.Fail(errors.New("boom")) {
		t.Fatal("Fail after Resolve should be a no-op")
	}

	v, err := p.Get()
	if v != 1 || err != nil {
		t.Fatalf("got (%d, %v), want (1, nil)", v, err)
	}
}

func TestPromiseFailOnce(t *testing.T) {
	want := errors.New("boom")
	p := NewSettablePromise[int]()

	if !p.Fail(want) {
		t.Fatal("first Fail should succeed")
	}
	if p.Resolve(1) {
		t.Fatal("Resolve after Fail should be a no-op")
	}

	_, err := p.Get()
	if !errors.Is(err, want) {
		t.Fatalf("got err %v, want %v", err, want)
	}
	if !p.IsFailed() {
		t.Fatal("IsFailed should be true")
	}
}

func TestPromiseOnCompleteBeforeTerminal(t *testing.T) {
	p := NewSettablePromise[int]()

	var got int
	var gotErr error
	done := make(chan struct{})
	p.OnComplete(func(v int, err error) {
		got, gotErr = v, err
		close(done)
	})

	p.Resolve(42)
	<-done

	if got != 42 || gotErr != nil {
		t.Fatalf("listener saw (%d, %v), want (42, nil)", got, gotErr)
	}
}

func TestPromiseOnCompleteAfterTerminalFiresSynchronously(t *testing.T) {
	p := NewSettablePromise[int]()
	p.Resolve(7)

	fired := false
	p.OnComplete(func(v int, err error) {
		fired = true
		if v != 7 {
			t.Fatalf("got %d, want 7", v)
		}
	})

	if !fired {
		t.Fatal("listener registered after terminal state did not fire synchronously")
	}
}

func TestPromiseListenersFireInRegistrationOrder(t *testing.T) {
	p := NewSettablePromise[int]()
	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		p.OnComplete(func(int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.Resolve(0)

	for i, v := range order {
		if v != i {
			t.Fatalf("listener order = %v, want 0,1,2,3,4", order)
		}
	}
}

func TestPromiseConcurrentResolveOnlyOneWins(t *testing.T) {
	p := NewSettablePromise[int]()
	var wg sync.WaitGroup
	var wins sync.Mutex
	winners := 0

	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Resolve(i) {
				wins.Lock()
				winners++
				wins.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winning Resolve, got %d", winners)
	}
}
