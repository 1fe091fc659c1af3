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
	"context"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/deckhouse/btrfs-provisioner/internal/ctlerrors"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
	"github.com/deckhouse/btrfs-provisioner/internal/storageclass"
)

type Reconciler struct {
	cl         client.Client
	log        *slog.Logger
	dispatcher *jobs.Dispatcher

	// seen holds claim UIDs already dispatched or already bound. Accessed
	// from a single reconcile goroutine only.
	seen map[types.UID]struct{}
}

var _ reconcile.Reconciler = (*Reconciler)(nil)

func NewReconciler(cl client.Client, log *slog.Logger, dispatcher *jobs.Dispatcher) *Reconciler {
	return &Reconciler{
		cl:         cl,
		log:        log,
		dispatcher: dispatcher,
		seen:       map[types.UID]struct{}{},
	}
}

// Reconcile dispatches at most one provisioning Job per claim.
//
// A claim qualifies when it is Pending, references a StorageClass owned by
// this provisioner and has not been handled before. The Job is pinned to
// the node named in the class's controlling-node label. Dispatch failures
// are terminal for the claim: the UID stays marked and the failure is
// logged, matching the at-most-once contract.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	pvc := &corev1.PersistentVolumeClaim{}
	if err := r.cl.Get(ctx, req.NamespacedName, pvc); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	if _, ok := r.seen[pvc.UID]; ok {
		return reconcile.Result{}, nil
	}

	if pvc.Spec.StorageClassName == nil || *pvc.Spec.StorageClassName == "" {
		return reconcile.Result{}, nil
	}

	sc := &storagev1.StorageClass{}
	if err := r.cl.Get(ctx, client.ObjectKey{Name: *pvc.Spec.StorageClassName}, sc); err != nil {
		if apierrors.IsNotFound(err) {
			// The class may appear later; the claim stays Pending and a
			// phase change or restart will retry.
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	// Claims of foreign classes never enter the seen set.
	if !storageclass.IsControlling(sc) {
		return reconcile.Result{}, nil
	}

	switch pvc.Status.Phase {
	case corev1.ClaimBound:
		// Already provisioned, possibly before this process started.
		r.seen[pvc.UID] = struct{}{}
		return reconcile.Result{}, nil
	case corev1.ClaimPending:
	default:
		return reconcile.Result{}, nil
	}

	assignment, ok := storageclass.AssignmentOf(sc)
	if !ok {
		r.log.Error(
			"storage class of a pending claim has no node assignment label",
			"storageClass", sc.Name,
			"claim", req.NamespacedName,
		)
		return reconcile.Result{}, nil
	}

	if assignment.Dynamic {
		r.log.Error(
			"claim will stay pending",
			"err", ctlerrors.ErrNotSupportedf("dynamic node assignment on storage class %s", sc.Name),
			"claim", req.NamespacedName,
		)
		return reconcile.Result{}, nil
	}

	r.seen[pvc.UID] = struct{}{}

	created, err := r.dispatcher.EnsureJob(ctx,
		jobs.Provision{ClaimUID: string(pvc.UID)},
		"provision",
		assignment.NodeName,
		[]string{"provision", pvc.Namespace, pvc.Name},
	)
	if err != nil {
		r.log.Error(
			"dispatching provisioning job failed",
			"claim", req.NamespacedName, "err", err,
		)
		return reconcile.Result{}, nil
	}

	if created {
		r.log.Info(
			"dispatched provisioning job",
			"claim", req.NamespacedName, "node", assignment.NodeName,
		)
	}

	return reconcile.Result{}, nil
}
