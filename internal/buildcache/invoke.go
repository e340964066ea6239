package buildcache

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CompilerError propagates a failed compiler invocation's exit code
// and captured stderr.
type CompilerError struct {
	ExitCode int
	Stderr   string
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("compiler exited %d: %s", e.ExitCode, e.Stderr)
}

// InvokeRequest is the planner's flag list plus where to write a
// response file, so long argument lists never hit a platform's
// command-line length limit.
type InvokeRequest struct {
	CompilerPath     string
	Args             []string
	ResponseFilePath string
	WorkDir          string
	Stdout, Stderr   io.Writer
}

// Invoke runs the compiler, writing Args one-per-line to
// ResponseFilePath and passing it as "@<path>" the way dmd/ldc2/gdc
// all accept a response file. Output streams to req.Stdout/Stderr as
// it's produced. On ctx cancellation the whole process group is sent
// SIGTERM, then SIGKILL if it hasn't exited shortly after.
func Invoke(ctx context.Context, req InvokeRequest) error {
	if err := writeResponseFile(req.ResponseFilePath, req.Args); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, req.CompilerPath, "@"+req.ResponseFilePath)
	cmd.Dir = req.WorkDir
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var stderrBuf strings.Builder
	if req.Stderr != nil {
		cmd.Stderr = io.MultiWriter(req.Stderr, &stderrBuf)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if asExitError(err, &exitErr) {
		return &CompilerError{ExitCode: exitErr.ExitCode(), Stderr: stderrBuf.String()}
	}
	return fmt.Errorf("buildcache: invoking %s: %w", req.CompilerPath, err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func writeResponseFile(path string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("buildcache: creating response file directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(args, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("buildcache: writing response file %s: %w", path, err)
	}
	return nil
}

// CleanupFailedBuild removes a staging directory's partial output
// after a failed compile.
func CleanupFailedBuild(stagingDir string) error {
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("buildcache: cleaning up %s: %w", stagingDir, err)
	}
	return nil
}
