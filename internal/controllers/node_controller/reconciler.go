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
	"context"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
)

type Reconciler struct {
	cl         client.Client
	log        *slog.Logger
	dispatcher *jobs.Dispatcher

	// seen holds node UIDs already dispatched. Accessed from a single
	// reconcile goroutine only.
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

// Reconcile dispatches at most one initialization Job per node. Nodes that
// already carry a dedicated StorageClass are only marked as handled.
func (r *Reconciler) Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error) {
	node := &corev1.Node{}
	if err := r.cl.Get(ctx, req.NamespacedName, node); err != nil {
		if apierrors.IsNotFound(err) {
			return reconcile.Result{}, nil
		}
		return reconcile.Result{}, err
	}

	if _, ok := r.seen[node.UID]; ok {
		return reconcile.Result{}, nil
	}

	scList := &storagev1.StorageClassList{}
	err := r.cl.List(ctx, scList,
		client.MatchingLabels{consts.ControllingNodeLabelKey: node.Name},
		client.Limit(1),
	)
	if err != nil {
		return reconcile.Result{}, err
	}

	if len(scList.Items) > 0 {
		r.seen[node.UID] = struct{}{}
		return reconcile.Result{}, nil
	}

	r.seen[node.UID] = struct{}{}

	created, err := r.dispatcher.EnsureJob(ctx,
		jobs.InitializeNode{NodeUID: string(node.UID)},
		"initialize-node",
		node.Name,
		[]string{"initialize-node"},
	)
	if err != nil {
		r.log.Error(
			"dispatching node initialization job failed",
			"node", node.Name, "err", err,
		)
		return reconcile.Result{}, nil
	}

	if created {
		r.log.Info("dispatched node initialization job", "node", node.Name)
	}

	return reconcile.Result{}, nil
}
