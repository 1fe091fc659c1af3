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

package btrfs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
	"github.com/deckhouse/btrfs-provisioner/internal/btrfs/fake"
)

const qgroupShowOutput = `qgroupid         rfer         excl     max_rfer     max_excl parent  child
--------         ----         ----     --------     -------- ------  -----
0/257        16.00KiB     16.00KiB         none    5.00GiB ---     ---
`

func TestGetQgroup(t *testing.T) {
	exec := &fake.Exec{}
	exec.ExpectCommands(&fake.ExpectedCmd{
		Name:         "btrfs",
		Args:         []string{"qgroup", "show", "-pcref", "/volumes/vol-1"},
		ResultOutput: []byte(qgroupShowOutput),
	})
	exec.Setup(t)

	qgroup, err := btrfs.New("").GetQgroup(context.Background(), "/volumes/vol-1")
	if err != nil {
		t.Fatalf("GetQgroup() failed: %v", err)
	}
	if qgroup != "0/257" {
		t.Errorf("GetQgroup() = %q, want %q", qgroup, "0/257")
	}
}

func TestGetQgroupNotFound(t *testing.T) {
	exec := &fake.Exec{}
	exec.ExpectCommands(&fake.ExpectedCmd{
		Name:         "btrfs",
		Args:         []string{"qgroup", "show", "-pcref", "/volumes/vol-1"},
		ResultOutput: []byte("qgroupid rfer excl\n-------- ---- ----\n"),
	})
	exec.Setup(t)

	_, err := btrfs.New("").GetQgroup(context.Background(), "/volumes/vol-1")
	if !errors.Is(err, btrfs.ErrQgroupNotFound) {
		t.Fatalf("GetQgroup() error = %v, want ErrQgroupNotFound", err)
	}
}

func TestChrootIndirection(t *testing.T) {
	exec := &fake.Exec{}
	exec.ExpectCommands(&fake.ExpectedCmd{
		Name: "chroot",
		Args: []string{"/host", "btrfs", "subvolume", "create", "/volumes/vol-1"},
	})
	exec.Setup(t)

	if err := btrfs.New("/host").SubvolumeCreate(context.Background(), "/volumes/vol-1"); err != nil {
		t.Fatalf("SubvolumeCreate() failed: %v", err)
	}
}

func TestCommandError(t *testing.T) {
	exec := &fake.Exec{}
	exec.ExpectCommands(&fake.ExpectedCmd{
		Name:         "btrfs",
		Args:         []string{"quota", "enable", "/volumes/vol-1"},
		ResultOutput: []byte("ERROR: quotas not available\n"),
		ResultErr:    fake.ExitErr{Code: 1},
	})
	exec.Setup(t)

	err := btrfs.New("").QuotaEnable(context.Background(), "/volumes/vol-1")
	if err == nil {
		t.Fatal("QuotaEnable() succeeded unexpectedly")
	}

	var cmdErr btrfs.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("QuotaEnable() error is not a CommandError: %v", err)
	}
	if cmdErr.ExitCode() != 1 {
		t.Errorf("ExitCode() = %d, want 1", cmdErr.ExitCode())
	}
	if cmdErr.Output() != "ERROR: quotas not available\n" {
		t.Errorf("Output() = %q", cmdErr.Output())
	}
}

func TestVolumeMeta(t *testing.T) {
	meta := btrfs.NewVolumeMeta("/volumes", "/host", "default-data-ab12c")

	if meta.Path != "/volumes/default-data-ab12c" {
		t.Errorf("Path = %q", meta.Path)
	}
	if meta.HostPath != "/host/volumes/default-data-ab12c" {
		t.Errorf("HostPath = %q", meta.HostPath)
	}

	meta = btrfs.NewVolumeMeta("/volumes", "", "default-data-ab12c")
	if meta.HostPath != "/volumes/default-data-ab12c" {
		t.Errorf("HostPath without host root = %q", meta.HostPath)
	}
}
