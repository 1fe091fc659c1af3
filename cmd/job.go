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

package main

import (
	"context"
	"fmt"
	"log/slog"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/deckhouse/btrfs-provisioner/internal/provisioner"
	"github.com/deckhouse/btrfs-provisioner/internal/utils"
)

// runJob executes a single helper job subcommand against the node this
// process runs on and returns when the operation is complete.
func runJob(ctx context.Context, log *slog.Logger, envConfig *EnvConfig, args []string) (err error) {
	defer utils.RecoverPanicToErr(&err)

	config, err := config.GetConfig()
	if err != nil {
		return utils.LogError(log, fmt.Errorf("getting rest config: %w", err))
	}

	scheme, err := newScheme()
	if err != nil {
		return utils.LogError(log, fmt.Errorf("building scheme: %w", err))
	}

	cl, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return utils.LogError(log, fmt.Errorf("creating client: %w", err))
	}

	p, err := provisioner.New(cl, log, provisioner.Config{
		NodeName:                   envConfig.NodeName,
		VolumesDir:                 envConfig.VolumesDir,
		HostFSRoot:                 envConfig.HostFSRoot,
		ArchiveOnDelete:            envConfig.ArchiveOnDelete,
		StorageClassPerNodeEnabled: envConfig.StorageClassPerNodeEnabled,
		StorageClassNamePattern:    envConfig.StorageClassNamePattern,
	})
	if err != nil {
		return utils.LogError(log, fmt.Errorf("creating provisioner: %w", err))
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "provision":
		if len(rest) != 2 {
			return fmt.Errorf("usage: provision <claim-namespace> <claim-name>")
		}
		err = p.ProvisionByClaimName(ctx, rest[0], rest[1])
	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("usage: delete <volume-name>")
		}
		err = p.DeleteByName(ctx, rest[0])
	case "initialize-node":
		if len(rest) != 0 {
			return fmt.Errorf("usage: initialize-node")
		}
		err = p.InitializeNode(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		return utils.LogError(log, err)
	}
	return nil
}
