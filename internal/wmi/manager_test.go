package wmi

import (
	"sync"
	"testing"
)

func TestFetch(t *testing.T) {
	m := Start()
	if _, err := m.Fetch(); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestConcurrentFetchesCoalesce(t *testing.T) {
	m := Start()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Fetch()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("fetch: %v", err)
		}
	}
}
