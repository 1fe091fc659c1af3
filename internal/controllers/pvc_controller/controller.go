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

package pvccontroller

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

// ControllerName is the controller name for pvc_controller.
const ControllerName = "pvc-controller"

func BuildController(mgr manager.Manager, dispatcher *jobs.Dispatcher) error {
	cl := mgr.GetClient()

	rec := NewReconciler(cl, slog.Default().With("controller", ControllerName), dispatcher)

	return builder.ControllerManagedBy(mgr).
		Named(ControllerName).
		For(&corev1.PersistentVolumeClaim{}, builder.WithPredicates(claimPredicates()...)).
		WithOptions(controller.Options{
			// The seen set is unsynchronized and relies on this.
			MaxConcurrentReconciles: 1,
		}).
		Complete(rec)
}

// claimPredicates returns predicates for PersistentVolumeClaim events.
// Reacts to:
//   - Create: always
//   - Update: only if phase changed
//   - Delete: never
func claimPredicates() []predicate.Predicate {
	return []predicate.Predicate{
		predicate.Funcs{
			UpdateFunc: func(e event.TypedUpdateEvent[client.Object]) bool {
				oldPVC, okOld := e.ObjectOld.(*corev1.PersistentVolumeClaim)
				newPVC, okNew := e.ObjectNew.(*corev1.PersistentVolumeClaim)
				if !okOld || !okNew || oldPVC == nil || newPVC == nil {
					return true
				}

				return oldPVC.Status.Phase != newPVC.Status.Phase
			},
			DeleteFunc: func(_ event.TypedDeleteEvent[client.Object]) bool {
				// A deleted claim has nothing left to provision.
				return false
			},
		},
	}
}
