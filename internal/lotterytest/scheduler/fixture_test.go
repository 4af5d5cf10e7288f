package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

const statFormat = "%d (worker) %s 1 %d %d 0 -1 4194304 84 0 0 0 %d %d 0 0 20 0 1 0 69663 2703360 306 " +
	"18446744073709551615 94191943643136 94191943663017 140735333454624 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0 " +
	"94191943679024 94191943680640 94192595464192 140735333459265 140735333459285 140735333459285 140735333461995 0\n"

type fakeProc struct {
	pid    int
	state  string
	utime  int
	stime  int
	cgroup string
	tasks  []int
}

// writeProcFixture lays out a minimal procfs tree containing procs and returns its mount point.
func writeProcFixture(t *testing.T, self int, procs ...fakeProc) string {
	t.Helper()
	mount := t.TempDir()
	for _, p := range procs {
		dir := filepath.Join(mount, strconv.Itoa(p.pid))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "task"), 0o755))
		stat := fmt.Sprintf(statFormat, p.pid, p.state, p.pid, p.pid, p.utime, p.stime)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(stat), 0o644))
		cgroup := p.cgroup
		if cgroup == "" {
			cgroup = "/"
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup"), []byte("0::"+cgroup+"\n"), 0o644))
		for _, tid := range p.tasks {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "task", strconv.Itoa(tid)), 0o755))
		}
	}
	if self != 0 {
		require.NoError(t, os.Symlink(strconv.Itoa(self), filepath.Join(mount, "self")))
	}
	return mount
}
