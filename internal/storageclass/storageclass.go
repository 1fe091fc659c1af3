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

// Package storageclass resolves which node serves a StorageClass, based on
// the class's provisioner identity and controlling-node label.
package storageclass

import (
	"context"
	"fmt"

	storagev1 "k8s.io/api/storage/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
)

// IsControlling reports whether the StorageClass is managed by this
// provisioner.
func IsControlling(sc *storagev1.StorageClass) bool {
	return sc.Provisioner == consts.ProvisionerName
}

// Assignment is the node assignment encoded in a StorageClass's
// controlling-node label.
type Assignment struct {
	// NodeName is the exact node serving the class. Empty when Dynamic.
	NodeName string

	// Dynamic is true when any node may serve the class ("*" label value).
	// No dispatch behavior is defined for dynamic classes; callers must
	// reject them rather than guess a node.
	Dynamic bool
}

// AssignmentOf returns the class's node assignment. The second return value
// is false when the class carries no controlling-node label, which callers
// treat as a recoverable skip.
func AssignmentOf(sc *storagev1.StorageClass) (Assignment, bool) {
	value, ok := sc.Labels[consts.ControllingNodeLabelKey]
	if !ok {
		return Assignment{}, false
	}

	if value == consts.DynamicNodeLabelValue {
		return Assignment{Dynamic: true}, true
	}

	return Assignment{NodeName: value}, true
}

// IsControllingByName fetches the named StorageClass and reports whether it
// is managed by this provisioner. A missing class is not an error: it
// resolves to false.
func IsControllingByName(ctx context.Context, cl client.Client, name string) (bool, error) {
	sc := &storagev1.StorageClass{}
	if err := cl.Get(ctx, client.ObjectKey{Name: name}, sc); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("getting storage class %s: %w", name, err)
	}

	return IsControlling(sc), nil
}
