//go:build !windows

package sidecar

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

func TestOwnsGroup(t *testing.T) {
	running := &Child{pid: 4242, exited: make(chan struct{})}
	reaped := &Child{pid: 4242, exited: make(chan struct{})}
	close(reaped.exited)

	cases := []struct {
		name    string
		child   *Child
		getpgid func(int) (int, error)
		want    bool
	}{
		{
			name:  "running child leads its group",
			child: running,
			getpgid: func(int) (int, error) {
				t.Error("getpgid should not be consulted for a running child")
				return 0, nil
			},
			want: true,
		},
		{
			name:    "reaped child, pid unused",
			child:   reaped,
			getpgid: func(int) (int, error) { return 0, unix.ESRCH },
			want:    true,
		},
		{
			name:    "reaped child, pid recycled as a group leader",
			child:   reaped,
			getpgid: func(pid int) (int, error) { return pid, nil },
			want:    false,
		},
		{
			name:    "reaped child, pid recycled into another group",
			child:   reaped,
			getpgid: func(int) (int, error) { return 1, nil },
			want:    false,
		},
		{
			name:    "reaped child, lookup failed",
			child:   reaped,
			getpgid: func(int) (int, error) { return 0, errors.New("boom") },
			want:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ownsGroup(tc.child, tc.getpgid); got != tc.want {
				t.Errorf("ownsGroup = %v, want %v", got, tc.want)
			}
		})
	}
}
