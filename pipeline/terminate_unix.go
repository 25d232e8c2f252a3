// Copyright 2024 Gustavo C. Viegas. All rights reserved.

//go:build unix

package pipeline

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// requestTerminate sends SIGTERM to pid, the POSIX counterpart to the
// original engine's Process::requestTerminate.
func requestTerminate(pid int) error {
	return unix.Kill(pid, syscall.SIGTERM)
}
