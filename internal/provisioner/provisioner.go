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

// Package provisioner holds the node-local btrfs volume state machines run
// by helper jobs: provisioning a subvolume for a claim, deleting or
// archiving a released one, and initializing a node's StorageClass.
package provisioner

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/btrfs"
	"github.com/deckhouse/btrfs-provisioner/internal/ctlerrors"
)

// Config carries the node-local settings a helper job runs with. Values
// come from the job's environment, set at dispatch.
type Config struct {
	// NodeName is the node this job is pinned to.
	NodeName string

	// VolumesDir is the subvolume root within the volumes filesystem.
	VolumesDir string

	// HostFSRoot is where the host filesystem is mounted in this process's
	// mount namespace. Empty when running directly on the host.
	HostFSRoot string

	// ArchiveOnDelete renames subvolumes out of the way instead of
	// destroying them.
	ArchiveOnDelete bool

	StorageClassPerNodeEnabled bool
	StorageClassNamePattern    string
}

// Provisioner executes volume lifecycle operations against the btrfs
// filesystem of the node it runs on.
type Provisioner struct {
	cl    client.Client
	log   *slog.Logger
	cfg   Config
	btrfs *btrfs.Wrapper

	// replaceable in tests
	now        func() time.Time
	randSuffix func() string
}

func New(cl client.Client, log *slog.Logger, cfg Config) (*Provisioner, error) {
	if err := ctlerrors.ValidateArgNotNil(cl, "cl"); err != nil {
		return nil, err
	}
	if err := ctlerrors.ValidateArgNotNil(log, "log"); err != nil {
		return nil, err
	}
	if cfg.NodeName == "" {
		return nil, ctlerrors.ErrValidationf("node name is empty")
	}

	return &Provisioner{
		cl:         cl,
		log:        log,
		cfg:        cfg,
		btrfs:      btrfs.New(cfg.HostFSRoot),
		now:        time.Now,
		randSuffix: randSuffix,
	}, nil
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randSuffix returns 5 random lowercase alphanumerics, the disambiguating
// tail of generated volume names.
func randSuffix() string {
	var b strings.Builder
	for range 5 {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}
	return b.String()
}
