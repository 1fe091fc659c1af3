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

package controllers

import (
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/manager"

	nodecontroller "github.com/deckhouse/btrfs-provisioner/internal/controllers/node_controller"
	pvcontroller "github.com/deckhouse/btrfs-provisioner/internal/controllers/pv_controller"
	pvccontroller "github.com/deckhouse/btrfs-provisioner/internal/controllers/pvc_controller"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
)

// BuildAll builds all controllers. Every controller shares the same job
// dispatcher, so concurrent dispatch attempts for the same target
// deduplicate against the cluster state.
func BuildAll(mgr manager.Manager, dispatcher *jobs.Dispatcher) error {
	type namedBuilder struct {
		name  string
		build func(mgr manager.Manager, dispatcher *jobs.Dispatcher) error
	}

	builders := []namedBuilder{
		{pvccontroller.ControllerName, pvccontroller.BuildController},
		{pvcontroller.ControllerName, pvcontroller.BuildController},
	}

	// Node initialization only exists to register per-node StorageClasses.
	if dispatcher.Config().StorageClassPerNodeEnabled {
		builders = append(builders, namedBuilder{nodecontroller.ControllerName, nodecontroller.BuildController})
	}

	for _, b := range builders {
		if err := b.build(mgr, dispatcher); err != nil {
			return fmt.Errorf("building %s: %w", b.name, err)
		}
	}

	return nil
}
