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

// Package fake records expected btrfs command executions for tests.
package fake

import (
	"context"
	"fmt"
	"slices"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
)

// TestingT is the subset of [testing.T] the fake needs. It is also
// satisfied by GinkgoT().
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Cleanup(func())
}

type Exec struct {
	cmds []*ExpectedCmd
}

func (b *Exec) ExpectCommands(cmds ...*ExpectedCmd) {
	b.cmds = append(b.cmds, cmds...)
}

func (b *Exec) Setup(t TestingT) {
	t.Helper()

	tmp := btrfs.ExecCommandContext

	i := 0

	btrfs.ExecCommandContext = func(_ context.Context, name string, args ...string) btrfs.Cmd {
		if len(b.cmds) <= i {
			t.Fatalf("expected %d command executions, got more", len(b.cmds))
		}
		cmd := b.cmds[i]

		if !cmd.Matches(name, args...) {
			t.Fatalf(
				"ExecCommandContext was called with unexpected arguments (call index %d): got %s %v, want %s %v",
				i, name, args, cmd.Name, cmd.Args,
			)
		}

		i++
		return cmd
	}

	t.Cleanup(func() {
		// actual cleanup
		btrfs.ExecCommandContext = tmp

		// assert all commands executed
		if i != len(b.cmds) {
			t.Errorf("expected %d command executions, got %d", len(b.cmds), i)
		}
	})
}

type ExpectedCmd struct {
	Name string
	Args []string

	ResultOutput []byte
	ResultErr    error
}

var _ btrfs.Cmd = &ExpectedCmd{}

func (c *ExpectedCmd) Matches(name string, args ...string) bool {
	return c.Name == name && slices.Equal(c.Args, args)
}

func (c *ExpectedCmd) CombinedOutput() ([]byte, error) {
	return c.ResultOutput, c.ResultErr
}

type ExitErr struct{ Code int }

func (e ExitErr) Error() string { return fmt.Sprintf("exit status %d", e.Code) }
func (e ExitErr) ExitCode() int { return e.Code }
