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

	"github.com/deckhouse/btrfs-provisioner/internal/controllers"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
	"github.com/deckhouse/btrfs-provisioner/internal/utils"
)

// runController runs the reconciliation controllers until the context is
// canceled.
func runController(ctx context.Context, log *slog.Logger, envConfig *EnvConfig) (err error) {
	// to be used in goroutines spawned below
	ctx, cancel := context.WithCancelCause(ctx)
	defer func() { cancel(err) }()

	mgr, err := newManager(ctx, log, envConfig)
	if err != nil {
		return err
	}

	dispatcher, err := jobs.NewDispatcher(mgr.GetClient(), log, jobs.Config{
		Namespace:                  envConfig.PodNamespace,
		Image:                      envConfig.Image,
		VolumesDir:                 envConfig.VolumesDir,
		ArchiveOnDelete:            envConfig.ArchiveOnDelete,
		StorageClassPerNodeEnabled: envConfig.StorageClassPerNodeEnabled,
		StorageClassNamePattern:    envConfig.StorageClassNamePattern,
	})
	if err != nil {
		return utils.LogError(log, fmt.Errorf("creating job dispatcher: %w", err))
	}

	if err := controllers.BuildAll(mgr, dispatcher); err != nil {
		return utils.LogError(log, fmt.Errorf("building controllers: %w", err))
	}

	utils.GoForever("manager", cancel, log,
		func() error { return mgr.Start(ctx) },
	)

	<-ctx.Done()

	return context.Cause(ctx)
}
