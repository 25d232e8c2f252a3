// Copyright 2024 Gustavo C. Viegas. All rights reserved.

//go:build !unix

package pipeline

import "os"

// requestTerminate has no POSIX SIGTERM to send outside unix build
// targets, so it falls back to a hard kill (same as Process.Terminate).
func requestTerminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
