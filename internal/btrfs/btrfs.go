/*
Copyright 2025 Flant JSC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package btrfs executes btrfs subvolume and qgroup operations as external
// commands, optionally chrooted into a host filesystem mounted at an
// alternate root. Paths passed to operations are expressed relative to that
// alternate root.
package btrfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Matches a qgroup identifier at the start of a `qgroup show` output line.
// Deliberately lenient line scanning: the table layout is not stable across
// btrfs versions.
var qgroupRe = regexp.MustCompile(`^(\d+/\d+)\s`)

// Wrapper runs btrfs commands. When hostRoot is non-empty, every command
// is executed inside that root via chroot, which lets the process operate on
// the host filesystem from an isolated mount namespace.
type Wrapper struct {
	hostRoot string

	// process output mirror, replaceable in tests
	stdout io.Writer
}

func New(hostRoot string) *Wrapper {
	return &Wrapper{
		hostRoot: hostRoot,
		stdout:   os.Stdout,
	}
}

// SetStdout redirects the command transcript, used by tests to keep output
// quiet.
func (w *Wrapper) SetStdout(stdout io.Writer) {
	w.stdout = stdout
}

func (w *Wrapper) SubvolumeCreate(ctx context.Context, path string) error {
	_, err := w.run(ctx, Command, SubvolumeCreateArgs(path)...)
	return err
}

func (w *Wrapper) SubvolumeDelete(ctx context.Context, path string) error {
	_, err := w.run(ctx, Command, SubvolumeDeleteArgs(path)...)
	return err
}

func (w *Wrapper) QuotaEnable(ctx context.Context, path string) error {
	_, err := w.run(ctx, Command, QuotaEnableArgs(path)...)
	return err
}

func (w *Wrapper) QuotaRescanWait(ctx context.Context, path string) error {
	_, err := w.run(ctx, Command, QuotaRescanWaitArgs(path)...)
	return err
}

func (w *Wrapper) QgroupLimit(ctx context.Context, bytes int64, path string) error {
	_, err := w.run(ctx, Command, QgroupLimitArgs(bytes, path)...)
	return err
}

func (w *Wrapper) QgroupDestroy(ctx context.Context, qgroup string, path string) error {
	_, err := w.run(ctx, Command, QgroupDestroyArgs(qgroup, path)...)
	return err
}

// Move renames a path within the volumes filesystem, used for archival.
func (w *Wrapper) Move(ctx context.Context, source string, target string) error {
	_, err := w.run(ctx, MoveCommand, MoveArgs(source, target)...)
	return err
}

// GetQgroup returns the qgroup identifier of the subvolume at path, or
// [ErrQgroupNotFound] when the show output contains none.
func (w *Wrapper) GetQgroup(ctx context.Context, path string) (string, error) {
	out, err := w.run(ctx, Command, QgroupShowArgs(path)...)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(out), "\n") {
		if m := qgroupRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("%w: for path %s", ErrQgroupNotFound, path)
}

func (w *Wrapper) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if w.hostRoot != "" {
		name, args = ChrootCommand, append([]string{w.hostRoot, name}, args...)
	}

	fmt.Fprintf(w.stdout, "Running: %s %s\n", name, strings.Join(args, " "))

	cmd := ExecCommandContext(ctx, name, args...)

	out, err := cmd.CombinedOutput()

	// mirror for operational visibility
	_, _ = w.stdout.Write(out)

	if err != nil {
		return out, &commandError{
			error:           errors.Join(err, errors.New(string(out))),
			commandWithArgs: append([]string{name}, args...),
			output:          string(out),
			exitCode:        errToExitCode(err),
		}
	}

	return out, nil
}
