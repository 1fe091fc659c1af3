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
	"context"
	"log/slog"
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
	"github.com/deckhouse/btrfs-provisioner/internal/storageclass"
)

type Reconciler struct {
	cl         client.Client
	log        *slog.Logger
	dispatcher *jobs.Dispatcher
}

var _ reconcile.Reconciler = (*Reconciler)(nil)

func NewReconciler(cl client.Client, log *slog.Logger, dispatcher *jobs.Dispatcher) *Reconciler {
	return &Reconciler{
		cl:         cl,
		log:        log,
		dispatcher: dispatcher,
	}
}

// Reconcile dispatches deletion Jobs for deleting volumes of our classes.
//
// Only volumes that entered deletion while still carrying our finalizer
// qualify. The target node is found by the hostname pinned in the volume's
// node affinity; a volume whose node is gone stays held by the finalizer
// until the node returns or an operator removes the finalizer by hand.
//
// Deduplication relies on the live-Job label lookup alone. A deletion Job
// that failed and was garbage-collected is dispatched again on the next
// event for the volume.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	pv := &corev1.PersistentVolume{}
	if err := r.cl.Get(ctx, req.NamespacedName, pv); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	if pv.DeletionTimestamp == nil {
		return reconcile.Result{}, nil
	}

	if !slices.Contains(pv.Finalizers, consts.FinalizerName) {
		return reconcile.Result{}, nil
	}

	controlling, err := storageclass.IsControllingByName(ctx, r.cl, pv.Spec.StorageClassName)
	if err != nil {
		return reconcile.Result{}, err
	}
	if !controlling {
		return reconcile.Result{}, nil
	}

	hostname, ok := volumeHostname(pv)
	if !ok {
		r.log.Error(
			"volume has no hostname in its node affinity, cannot delete its subvolume",
			"volume", pv.Name,
		)
		return reconcile.Result{}, nil
	}

	nodeList := &corev1.NodeList{}
	err = r.cl.List(ctx, nodeList,
		client.MatchingLabels{consts.NodeHostnameLabelKey: hostname},
		client.Limit(1),
	)
	if err != nil {
		return reconcile.Result{}, err
	}

	if len(nodeList.Items) == 0 {
		r.log.Error(
			"no node found for volume's hostname, deletion stays blocked",
			"volume", pv.Name, "hostname", hostname,
		)
		return reconcile.Result{}, nil
	}

	created, err := r.dispatcher.EnsureJob(ctx,
		jobs.Delete{VolumeUID: string(pv.UID)},
		"delete",
		nodeList.Items[0].Name,
		[]string{"delete", pv.Name},
	)
	if err != nil {
		r.log.Error(
			"dispatching deletion job failed",
			"volume", pv.Name, "err", err,
		)
		return reconcile.Result{}, nil
	}

	if created {
		r.log.Info(
			"dispatched deletion job",
			"volume", pv.Name, "node", nodeList.Items[0].Name,
		)
	}

	return reconcile.Result{}, nil
}

// volumeHostname extracts the hostname the volume is pinned to from its
// required node affinity.
func volumeHostname(pv *corev1.PersistentVolume) (string, bool) {
	affinity := pv.Spec.NodeAffinity
	if affinity == nil || affinity.Required == nil {
		return "", false
	}

	for _, term := range affinity.Required.NodeSelectorTerms {
		for _, expr := range term.MatchExpressions {
			if expr.Key != consts.NodeHostnameLabelKey {
				continue
			}
			if expr.Operator != corev1.NodeSelectorOpIn || len(expr.Values) == 0 {
				continue
			}
			return expr.Values[0], true
		}
	}

	return "", false
}
