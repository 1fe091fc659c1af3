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

package pvcontroller

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

// ControllerName is the controller name for pv_controller.
const ControllerName = "pv-controller"

func BuildController(mgr manager.Manager, dispatcher *jobs.Dispatcher) error {
	cl := mgr.GetClient()

	rec := NewReconciler(cl, slog.Default().With("controller", ControllerName), dispatcher)

	return builder.ControllerManagedBy(mgr).
		Named(ControllerName).
		For(&corev1.PersistentVolume{}, builder.WithPredicates(volumePredicates()...)).
		WithOptions(controller.Options{
			// Dispatch dedup is list-then-create and relies on serial
			// reconciles.
			MaxConcurrentReconciles: 1,
		}).
		Complete(rec)
}

// volumePredicates returns predicates for PersistentVolume events.
// Reacts to:
//   - Create: only for volumes referencing a StorageClass; whether the
//     class is ours is resolved in the reconciler
//   - Update: same as Create
//   - Delete: never
func volumePredicates() []predicate.Predicate {
	classed := func(obj client.Object) bool {
		pv, ok := obj.(*corev1.PersistentVolume)
		return ok && pv.Spec.StorageClassName != ""
	}

	return []predicate.Predicate{
		predicate.Funcs{
			CreateFunc: func(e event.TypedCreateEvent[client.Object]) bool {
				return classed(e.Object)
			},
			UpdateFunc: func(e event.TypedUpdateEvent[client.Object]) bool {
				return classed(e.ObjectNew)
			},
			DeleteFunc: func(_ event.TypedDeleteEvent[client.Object]) bool {
				// Once the object is gone the finalizer has been removed
				// and the backend cleanup already happened.
				return false
			},
		},
	}
}
