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

	"github.com/go-logr/logr"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/selection"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/utils"
)

func newScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()

	for _, add := range []func(*runtime.Scheme) error{
		corev1.AddToScheme,
		storagev1.AddToScheme,
		batchv1.AddToScheme,
	} {
		if err := add(scheme); err != nil {
			return nil, err
		}
	}

	return scheme, nil
}

func newManager(
	ctx context.Context,
	log *slog.Logger,
	envConfig *EnvConfig,
) (manager.Manager, error) {
	config, err := config.GetConfig()
	if err != nil {
		return nil, utils.LogError(log, fmt.Errorf("getting rest config: %w", err))
	}

	scheme, err := newScheme()
	if err != nil {
		return nil, utils.LogError(log, fmt.Errorf("building scheme: %w", err))
	}

	jobTypeExists, err := labels.NewRequirement(consts.JobTypeLabelKey, selection.Exists, nil)
	if err != nil {
		return nil, utils.LogError(log, fmt.Errorf("building job label selector: %w", err))
	}

	// Only our helper Jobs in our namespace are of interest. This reduces
	// memory usage and API server load.
	cacheOpts := cache.Options{
		ByObject: map[client.Object]cache.ByObject{
			&batchv1.Job{}: {
				Namespaces: map[string]cache.Config{
					envConfig.PodNamespace: {},
				},
				Label: labels.NewSelector().Add(*jobTypeExists),
			},
		},
	}

	mgrOpts := manager.Options{
		Scheme:                 scheme,
		BaseContext:            func() context.Context { return ctx },
		Logger:                 logr.FromSlogHandler(log.Handler()),
		HealthProbeBindAddress: envConfig.HealthProbeBindAddress,
		Cache:                  cacheOpts,
		Metrics: server.Options{
			BindAddress: envConfig.MetricsBindAddress,
		},
	}

	mgr, err := manager.New(config, mgrOpts)
	if err != nil {
		return nil, utils.LogError(log, fmt.Errorf("creating manager: %w", err))
	}

	if err = mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return nil, utils.LogError(log, fmt.Errorf("AddHealthzCheck: %w", err))
	}

	if err = mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return nil, utils.LogError(log, fmt.Errorf("AddReadyzCheck: %w", err))
	}

	return mgr, nil
}
