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

package nodecontroller

import (
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
)

// ControllerName is the controller name for node_controller.
const ControllerName = "node-controller"

// control plane nodes never serve volumes
var controlPlaneLabelKeys = []string{
	"node-role.kubernetes.io/master",
	"node-role.kubernetes.io/control-plane",
}

func BuildController(mgr manager.Manager, dispatcher *jobs.Dispatcher) error {
	cl := mgr.GetClient()

	rec := NewReconciler(cl, slog.Default().With("controller", ControllerName), dispatcher)

	return builder.ControllerManagedBy(mgr).
		Named(ControllerName).
		For(&corev1.Node{}, builder.WithPredicates(nodePredicates()...)).
		WithOptions(controller.Options{
			// The seen set is unsynchronized and relies on this.
			MaxConcurrentReconciles: 1,
		}).
		Complete(rec)
}

// nodePredicates returns predicates for Node events.
// Reacts to:
//   - Create: only for worker nodes
//   - Update: never, initialization is a one-time action
//   - Delete: never
func nodePredicates() []predicate.Predicate {
	return []predicate.Predicate{
		predicate.Funcs{
			CreateFunc: func(e event.TypedCreateEvent[client.Object]) bool {
				return isWorker(e.Object)
			},
			UpdateFunc: func(_ event.TypedUpdateEvent[client.Object]) bool {
				return false
			},
			DeleteFunc: func(_ event.TypedDeleteEvent[client.Object]) bool {
				return false
			},
		},
	}
}

func isWorker(obj client.Object) bool {
	lbls := obj.GetLabels()
	for _, key := range controlPlaneLabelKeys {
		if _, ok := lbls[key]; ok {
			return false
		}
	}
	return true
}
