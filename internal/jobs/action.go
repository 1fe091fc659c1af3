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

// Package jobs encodes provisioner actions as Kubernetes Job label sets and
// dispatches deduplicated helper Jobs: at most one live Job exists per
// (job-type, target-uid) pair.
package jobs

import (
	"fmt"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
)

// Action is a typed provisioner action plus its target identity. It is a
// closed sum: exactly [Provision], [Delete] and [InitializeNode] implement
// it. Labels and [FromLabels] are exact inverses.
type Action interface {
	// Labels renders the action as the stable {job-type, target-uid} pair.
	Labels() map[string]string

	isAction()
}

// Provision requests a volume to be provisioned for a claim.
type Provision struct {
	ClaimUID string
}

// Delete requests a volume's subvolume to be destroyed or archived.
type Delete struct {
	VolumeUID string
}

// InitializeNode requests a node's volume root to be verified and its
// per-node StorageClass to be registered.
type InitializeNode struct {
	NodeUID string
}

func (a Provision) Labels() map[string]string {
	return actionLabels(consts.JobTypeProvisionValue, a.ClaimUID)
}

func (a Delete) Labels() map[string]string {
	return actionLabels(consts.JobTypeDeleteValue, a.VolumeUID)
}

func (a InitializeNode) Labels() map[string]string {
	return actionLabels(consts.JobTypeInitializeNodeValue, a.NodeUID)
}

func (Provision) isAction()      {}
func (Delete) isAction()         {}
func (InitializeNode) isAction() {}

func actionLabels(jobType, targetUID string) map[string]string {
	return map[string]string{
		consts.JobTypeLabelKey:      jobType,
		consts.JobTargetUIDLabelKey: targetUID,
	}
}

// Selector renders the action's labels as a conjunctive label selector,
// usable to find an already-live Job for the same action and target.
func Selector(a Action) labels.Selector {
	return labels.SelectorFromSet(a.Labels())
}

// FromLabels decodes an action from a Job's label set.
func FromLabels(lbls map[string]string) (Action, error) {
	jobType, ok := lbls[consts.JobTypeLabelKey]
	if !ok {
		return nil, fmt.Errorf("labels do not contain required label %s", consts.JobTypeLabelKey)
	}

	targetUID, ok := lbls[consts.JobTargetUIDLabelKey]
	if !ok {
		return nil, fmt.Errorf(
			"required label %s missing for type=%s",
			consts.JobTargetUIDLabelKey, jobType,
		)
	}

	switch jobType {
	case consts.JobTypeProvisionValue:
		return Provision{ClaimUID: targetUID}, nil
	case consts.JobTypeDeleteValue:
		return Delete{VolumeUID: targetUID}, nil
	case consts.JobTypeInitializeNodeValue:
		return InitializeNode{NodeUID: targetUID}, nil
	default:
		return nil, fmt.Errorf("invalid job type: %s", jobType)
	}
}
