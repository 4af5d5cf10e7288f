package workerpool

import "syscall"

// Workers are killed if the harness dies without cleaning up.
func workerSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
}
