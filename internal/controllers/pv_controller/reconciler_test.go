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
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/deckhouse/btrfs-provisioner/internal/consts"
	"github.com/deckhouse/btrfs-provisioner/internal/jobs"
)

func TestPVController(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "pv_controller Reconciler Suite")
}

const jobNamespace = "btrfs-provisioner"

var _ = Describe("Reconciler", func() {
	var (
		scheme *runtime.Scheme
		cl     client.WithWatch
		rec    *Reconciler
	)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	newNode := func(name string) *corev1.Node {
		return &corev1.Node{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: map[string]string{consts.NodeHostnameLabelKey: name},
			},
		}
	}

	newStorageClass := func(name, provisioner string) *storagev1.StorageClass {
		return &storagev1.StorageClass{
			ObjectMeta:  metav1.ObjectMeta{Name: name},
			Provisioner: provisioner,
		}
	}

	newVolume := func(name string, uid types.UID, className, hostname string, deleting bool) *corev1.PersistentVolume {
		pv := &corev1.PersistentVolume{
			ObjectMeta: metav1.ObjectMeta{
				Name:       name,
				UID:        uid,
				Finalizers: []string{consts.FinalizerName},
			},
			Spec: corev1.PersistentVolumeSpec{
				StorageClassName: className,
			},
		}
		if hostname != "" {
			pv.Spec.NodeAffinity = &corev1.VolumeNodeAffinity{
				Required: &corev1.NodeSelector{
					NodeSelectorTerms: []corev1.NodeSelectorTerm{{
						MatchExpressions: []corev1.NodeSelectorRequirement{{
							Key:      consts.NodeHostnameLabelKey,
							Operator: corev1.NodeSelectorOpIn,
							Values:   []string{hostname},
						}},
					}},
				},
			}
		}
		if deleting {
			now := metav1.Now()
			pv.DeletionTimestamp = &now
		}
		return pv
	}

	build := func(objs ...client.Object) {
		cl = fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
		dispatcher, err := jobs.NewDispatcher(cl, log, jobs.Config{
			Namespace: jobNamespace,
			Image:     "test-image",
		})
		Expect(err).NotTo(HaveOccurred())
		rec = NewReconciler(cl, log, dispatcher)
	}

	reconcileVolume := func(name string) {
		GinkgoHelper()
		result, err := rec.Reconcile(context.Background(), reconcile.Request{
			NamespacedName: client.ObjectKey{Name: name},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(reconcile.Result{}))
	}

	listJobs := func() []batchv1.Job {
		jobList := &batchv1.JobList{}
		Expect(cl.List(context.Background(), jobList, client.InNamespace(jobNamespace))).To(Succeed())
		return jobList.Items
	}

	BeforeEach(func() {
		scheme = runtime.NewScheme()
		Expect(corev1.AddToScheme(scheme)).To(Succeed())
		Expect(storagev1.AddToScheme(scheme)).To(Succeed())
		Expect(batchv1.AddToScheme(scheme)).To(Succeed())
	})

	ourClass := func() *storagev1.StorageClass {
		return newStorageClass("btrfs-node-1", consts.ProvisionerName)
	}

	It("dispatches a deletion job for a deleting volume", func() {
		build(ourClass(), newNode("node-1"), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-1", true))

		reconcileVolume("pv-1")

		created := listJobs()
		Expect(created).To(HaveLen(1))
		job := created[0]
		Expect(job.Labels).To(HaveKeyWithValue(consts.JobTypeLabelKey, consts.JobTypeDeleteValue))
		Expect(job.Labels).To(HaveKeyWithValue(consts.JobTargetUIDLabelKey, "uid-1"))
		Expect(job.Spec.Template.Spec.NodeName).To(Equal("node-1"))
		Expect(job.Spec.Template.Spec.Containers[0].Args).To(Equal([]string{"delete", "pv-1"}))
	})

	It("keeps a single live job per volume", func() {
		build(ourClass(), newNode("node-1"), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-1", true))

		reconcileVolume("pv-1")
		reconcileVolume("pv-1")

		Expect(listJobs()).To(HaveLen(1))
	})

	It("dispatches again after the previous job is garbage-collected", func() {
		build(ourClass(), newNode("node-1"), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-1", true))

		reconcileVolume("pv-1")

		created := listJobs()
		Expect(created).To(HaveLen(1))
		Expect(cl.Delete(context.Background(), &created[0])).To(Succeed())

		reconcileVolume("pv-1")

		Expect(listJobs()).To(HaveLen(1))
	})

	It("ignores volumes of foreign storage classes", func() {
		build(
			newStorageClass("other", "other.example.com/provisioner"),
			newNode("node-1"),
			newVolume("pv-1", "uid-1", "other", "node-1", true),
		)

		reconcileVolume("pv-1")

		Expect(listJobs()).To(BeEmpty())
	})

	It("ignores volumes whose storage class is gone", func() {
		build(newNode("node-1"), newVolume("pv-1", "uid-1", "ghost-class", "node-1", true))

		reconcileVolume("pv-1")

		Expect(listJobs()).To(BeEmpty())
	})

	It("ignores volumes not being deleted", func() {
		build(ourClass(), newNode("node-1"), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-1", false))

		reconcileVolume("pv-1")

		Expect(listJobs()).To(BeEmpty())
	})

	It("keeps a volume without node affinity blocked", func() {
		build(ourClass(), newNode("node-1"), newVolume("pv-1", "uid-1", "btrfs-node-1", "", true))

		reconcileVolume("pv-1")

		Expect(listJobs()).To(BeEmpty())
	})

	It("keeps a volume blocked when its node is gone", func() {
		build(ourClass(), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-gone", true))

		reconcileVolume("pv-1")

		Expect(listJobs()).To(BeEmpty())

		// the node may come back; the volume stays eligible
		build(ourClass(), newNode("node-gone"), newVolume("pv-1", "uid-1", "btrfs-node-1", "node-gone", true))

		reconcileVolume("pv-1")

		Expect(listJobs()).To(HaveLen(1))
	})

	It("tolerates a missing volume", func() {
		build()

		reconcileVolume("ghost")
	})
})

func TestVolumeHostname(t *testing.T) {
	pv := &corev1.PersistentVolume{
		Spec: corev1.PersistentVolumeSpec{
			NodeAffinity: &corev1.VolumeNodeAffinity{
				Required: &corev1.NodeSelector{
					NodeSelectorTerms: []corev1.NodeSelectorTerm{{
						MatchExpressions: []corev1.NodeSelectorRequirement{
							{
								Key:      "example.com/unrelated",
								Operator: corev1.NodeSelectorOpIn,
								Values:   []string{"x"},
							},
							{
								Key:      consts.NodeHostnameLabelKey,
								Operator: corev1.NodeSelectorOpIn,
								Values:   []string{"node-7"},
							},
						},
					}},
				},
			},
		},
	}

	hostname, ok := volumeHostname(pv)
	if !ok || hostname != "node-7" {
		t.Errorf("volumeHostname() = %q, %v; want node-7, true", hostname, ok)
	}

	if _, ok := volumeHostname(&corev1.PersistentVolume{}); ok {
		t.Error("volumeHostname() reported a hostname for a volume without affinity")
	}
}
