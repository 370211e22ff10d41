//go:build !windows

package winsvc

import "testing"

func TestListEmptyOffWindows(t *testing.T) {
	svcs, err := List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if svcs == nil || len(svcs) != 0 {
		t.Errorf("got %#v, want empty non-nil list", svcs)
	}
}
