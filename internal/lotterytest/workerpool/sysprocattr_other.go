//go:build !linux

package workerpool

import "syscall"

func workerSysProcAttr() *syscall.SysProcAttr {
	return nil
}
