//go:build !windows

package wmi

// collector is a stub off Windows; snapshots carry a null inventory.
type collector struct{}

func newCollector() (*collector, error) {
	return &collector{}, nil
}

func (c *collector) close() {}

func (c *collector) collect() (any, error) {
	return nil, nil
}
