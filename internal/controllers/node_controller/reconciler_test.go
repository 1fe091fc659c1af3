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

func TestNodeController(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "node_controller Reconciler Suite")
}

const jobNamespace = "btrfs-provisioner"

var _ = Describe("Reconciler", func() {
	var (
		scheme *runtime.Scheme
		cl     client.WithWatch
		rec    *Reconciler
	)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	newNode := func(name string, uid types.UID) *corev1.Node {
		return &corev1.Node{
			ObjectMeta: metav1.ObjectMeta{Name: name, UID: uid},
		}
	}

	build := func(objs ...client.Object) {
		cl = fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
		dispatcher, err := jobs.NewDispatcher(cl, log, jobs.Config{
			Namespace:                  jobNamespace,
			Image:                      "test-image",
			StorageClassPerNodeEnabled: true,
		})
		Expect(err).NotTo(HaveOccurred())
		rec = NewReconciler(cl, log, dispatcher)
	}

	reconcileNode := func(name string) {
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

	It("dispatches an initialization job for a fresh node", func() {
		build(newNode("node-1", "uid-1"))

		reconcileNode("node-1")

		created := listJobs()
		Expect(created).To(HaveLen(1))
		job := created[0]
		Expect(job.Labels).To(HaveKeyWithValue(consts.JobTypeLabelKey, consts.JobTypeInitializeNodeValue))
		Expect(job.Labels).To(HaveKeyWithValue(consts.JobTargetUIDLabelKey, "uid-1"))
		Expect(job.Spec.Template.Spec.NodeName).To(Equal("node-1"))
		Expect(job.Spec.Template.Spec.Containers[0].Args).To(Equal([]string{"initialize-node"}))
	})

	It("dispatches at most once per node", func() {
		build(newNode("node-1", "uid-1"))

		reconcileNode("node-1")
		reconcileNode("node-1")

		Expect(listJobs()).To(HaveLen(1))
	})

	It("skips nodes that already have a dedicated storage class", func() {
		sc := &storagev1.StorageClass{
			ObjectMeta: metav1.ObjectMeta{
				Name:   "btrfs-provisioner-node-1",
				Labels: map[string]string{consts.ControllingNodeLabelKey: "node-1"},
			},
			Provisioner: consts.ProvisionerName,
		}
		build(newNode("node-1", "uid-1"), sc)

		reconcileNode("node-1")

		Expect(listJobs()).To(BeEmpty())
		Expect(rec.seen).To(HaveKey(types.UID("uid-1")))
	})

	It("tolerates a missing node", func() {
		build()

		reconcileNode("ghost")
	})
})

func TestIsWorker(t *testing.T) {
	worker := &corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "w"}}
	if !isWorker(worker) {
		t.Error("isWorker() = false for an unlabeled node")
	}

	for _, key := range controlPlaneLabelKeys {
		cp := &corev1.Node{ObjectMeta: metav1.ObjectMeta{
			Name:   "cp",
			Labels: map[string]string{key: ""},
		}}
		if isWorker(cp) {
			t.Errorf("isWorker() = true for node labeled %s", key)
		}
	}
}
