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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/deckhouse/sds-common-lib/slogh"
	"github.com/go-logr/logr"
	crlog "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/deckhouse/btrfs-provisioner/internal/utils"
)

// The binary serves two roles. Without arguments it runs the controller,
// watching claims, volumes and nodes and dispatching helper Jobs. With a
// subcommand (provision, delete, initialize-node) it runs as such a helper
// Job on the target node and exits.
func main() {
	ctx := signals.SetupSignalHandler()

	logHandler := slogh.NewHandler(slogh.Config{})

	log := slog.New(logHandler).
		With("startedAt", time.Now().Format(time.RFC3339))
	slog.SetDefault(log)
	crlog.SetLogger(logr.FromSlogHandler(logHandler))

	slogh.RunConfigFileWatcher(
		ctx,
		logHandler.UpdateConfigData,
		&slogh.ConfigFileWatcherOptions{
			OwnLogger: log.With("goroutine", "slogh"),
		},
	)

	err := run(ctx, log, os.Args[1:])
	if err != nil {
		log.Error("exited with failure", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, args []string) error {
	envConfig, err := GetEnvConfig()
	if err != nil {
		return utils.LogError(log, fmt.Errorf("getting env config: %w", err))
	}
	log = log.With("nodeName", envConfig.NodeName)

	if len(args) == 0 {
		log.Info("controller started")

		err := runController(ctx, log, envConfig)
		if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
			log.Info("controller gracefully shutdown", "err", err)
			return nil
		}
		return err
	}

	log.Info("job started", "args", args)
	return runJob(ctx, log, envConfig, args)
}
