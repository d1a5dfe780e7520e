//go:build e2e

package e2e

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/probekit/probekit/internal/descriptor"
	"github.com/probekit/probekit/internal/runspec"
	"github.com/probekit/probekit/internal/state"
	"github.com/probekit/probekit/internal/updates"
)

var _ = Describe("Scheduled checks", func() {
	It("publishes review notices to subscribers", func(ctx SpecContext) {
		store, err := state.NewStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(store.CreateOrIgnore(ctx, []descriptor.Descriptor{installed("watch-1", 1, day(0))})).To(Succeed())
		service.publish("watch-1", link{Revision: 1, Updated: day(0), Tests: []string{"dnscheck"}})

		resolver := newResolver(store)
		scheduler, err := updates.NewScheduler(resolver, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		reports := make(chan updates.Report, 4)
		scheduler.OnReport(func(r updates.Report) { reports <- r })

		runCtx, cancel := context.WithCancel(ctx)
		DeferCleanup(cancel)
		snapshots := resolver.State().Subscribe(runCtx)
		done := make(chan error, 1)
		go func() { done <- scheduler.Run(runCtx) }()

		By("running the initial pass")
		Eventually(reports).Should(Receive(HaveField("Unchanged", 1)))

		By("publishing a major update and triggering a check")
		service.publish("watch-1", link{Revision: 2, Updated: day(1), Tests: []string{"dnscheck"}})
		scheduler.Trigger()
		Eventually(reports).Should(Receive(HaveField("Review", 1)))
		Eventually(snapshots).Should(Receive(HaveField("OperationState", updates.ReviewNecessaryNotice)))

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	}, SpecTimeout(30*time.Second))
})

var _ = Describe("Run specifications", func() {
	It("resolves a spec against installed descriptors and built-in suites", func(ctx SpecContext) {
		store, err := state.NewStore(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		active := installed("spec-1", 1, day(0))
		active.NetTests = []descriptor.NetTest{{Name: "web_connectivity", Inputs: []string{"https://example.org"}}}
		expiredAt := day(-1)
		expired := installed("spec-2", 1, day(0))
		expired.ExpirationDate = &expiredAt
		Expect(store.CreateOrIgnore(ctx, []descriptor.Descriptor{active, expired})).To(Succeed())

		ds, err := store.ListLatest(ctx)
		Expect(err).NotTo(HaveOccurred())
		ds = append(ds, descriptor.Defaults()...)

		spec, err := runspec.Parse([]byte(`
tests:
  - source: {kind: installed, key: spec-1}
    netTests: [{testName: web_connectivity}]
  - source: {kind: installed, key: spec-2}
    netTests: [{testName: web_connectivity}]
  - source: {kind: installed, key: missing}
    netTests: [{testName: web_connectivity}]
  - source: {kind: default, key: websites}
    netTests: [{testName: web_connectivity, inputs: ["https://example.com"]}]
`), "spec.yaml")
		Expect(err).NotTo(HaveOccurred())

		plan := runspec.Filter(spec, ds, day(10))
		Expect(plan).To(HaveLen(2))
		Expect(plan[0].ID).To(Equal("spec-1"))
		Expect(plan[0].NetTests[0].Inputs).To(ConsistOf("https://example.org"), "inputs default to the installed ones")
		Expect(plan[1].Builtin).To(BeTrue())
		Expect(plan[1].NetTests[0].Inputs).To(ConsistOf("https://example.com"))
	})
})
