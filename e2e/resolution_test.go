//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/probekit/probekit/internal/descriptor"
	pklog "github.com/probekit/probekit/internal/log"
	"github.com/probekit/probekit/internal/updates"
)

var _ = Describe("Update resolution", func() {
	for _, b := range backends {
		Context("with the "+b.name, Ordered, func() {
			var (
				ctx      context.Context
				store    updates.Store
				resolver *updates.Resolver
				logs     *pklog.Store
				logsDir  string
				prefix   string
			)

			id := func(n int) string {
				return fmt.Sprintf("%s-%d", prefix, n)
			}

			BeforeAll(func() {
				ctx = context.Background()
				dir := GinkgoT().TempDir()
				logsDir = dir + "/logs"
				prefix = b.name[:4]

				store = b.open(dir)
				resolver = newResolver(store)
				logs = pklog.NewStore(logsDir)
				resolver.SetFailureRecorder(logs)

				Expect(store.CreateOrIgnore(ctx, []descriptor.Descriptor{
					installed(id(1), 1, day(0)),
					installed(id(2), 1, day(0)),
					installed(id(3), 1, day(0)),
				})).To(Succeed())
				auto := installed(id(4), 1, day(0))
				auto.AutoUpdate = true
				Expect(store.CreateOrIgnore(ctx, []descriptor.Descriptor{auto})).To(Succeed())

				for n := 1; n <= 4; n++ {
					service.publish(id(n), link{Revision: 1, Name: "link", Updated: day(0), Tests: []string{"web_connectivity"}})
				}
			})

			It("changes nothing when the service has nothing newer", func() {
				before := latest(store)
				report := resolver.ResolveAll(ctx)

				Expect(report.Checked).To(Equal(4))
				Expect(report.Unchanged).To(Equal(4))
				Expect(latest(store)).To(Equal(before))
				Expect(resolver.State().Snapshot().OperationState).To(Equal(updates.Idle))

				By("running the same pass again")
				Expect(resolver.ResolveAll(ctx).Unchanged).To(Equal(4))
				Expect(latest(store)).To(Equal(before))
			})

			It("applies a minor update silently", func() {
				service.publish(id(1), link{Revision: 1, Name: "renamed", Updated: day(1), Tests: []string{"web_connectivity", "dnscheck"}})

				report := resolver.ResolveAll(ctx)
				Expect(report.Minor).To(Equal(1))

				d := latest(store)[id(1)]
				Expect(d.Revision).To(Equal(int64(1)))
				Expect(d.Name).To(Equal("renamed"))
				Expect(d.NetTests).To(HaveLen(2))
				Expect(resolver.State().Snapshot().AvailableUpdates).To(BeEmpty())
			})

			It("queues a major update of a manual descriptor for review", func() {
				service.publish(id(2), link{Revision: 2, Name: "v2", Updated: day(2), Tests: []string{"signal"}})

				report := resolver.ResolveAll(ctx)
				Expect(report.Review).To(Equal(1))

				snap := resolver.State().Snapshot()
				Expect(snap.OperationState).To(Equal(updates.ReviewNecessaryNotice))
				Expect(pendingIDs(resolver)).To(ConsistOf(id(2)))
				Expect(latest(store)[id(2)].Revision).To(Equal(int64(1)), "review does not write")
			})

			It("applies a major update of an auto-update descriptor", func() {
				service.publish(id(4), link{Revision: 5, Name: "v5", Updated: day(3), Tests: []string{"signal"}})

				report := resolver.ResolveAll(ctx)
				Expect(report.Auto).To(Equal(1))

				d := latest(store)[id(4)]
				Expect(d.Revision).To(Equal(int64(5)))
				Expect(d.AutoUpdate).To(BeTrue(), "user-owned flag survives the update")

				snap := resolver.State().Snapshot()
				Expect(snap.AutoUpdated).To(HaveLen(1))
				Expect(pendingIDs(resolver)).To(ConsistOf(id(2)), "the earlier review is still pending")
			})

			It("installs an accepted update", func() {
				pending, ok := resolver.State().Snapshot().Pending(id(2))
				Expect(ok).To(BeTrue())

				Expect(resolver.Accept(ctx, pending)).To(Succeed())
				Expect(latest(store)[id(2)].Revision).To(Equal(int64(2)))
				Expect(pendingIDs(resolver)).To(BeEmpty())

				resolver.DismissReviewNotice()
				Expect(resolver.State().Snapshot().OperationState).To(Equal(updates.Idle))
			})

			It("does not offer a declined revision again until the rejection is undone", func() {
				service.publish(id(3), link{Revision: 2, Name: "v2", Updated: day(4), Tests: []string{"tor"}})
				Expect(resolver.ResolveAll(ctx).Review).To(Equal(1))

				pending, _ := resolver.State().Snapshot().Pending(id(3))
				Expect(resolver.Reject(ctx, pending)).To(Succeed())
				Expect(pendingIDs(resolver)).To(BeEmpty())

				d := latest(store)[id(3)]
				Expect(d.Revision).To(Equal(int64(1)))
				Expect(d.RejectedRevision).To(HaveValue(Equal(int64(2))))

				By("checking again")
				report := resolver.ResolveAll(ctx)
				Expect(report.Rejected).To(Equal(1))
				Expect(pendingIDs(resolver)).To(BeEmpty())

				By("undoing the rejection")
				Expect(resolver.UndoReject(ctx, id(3))).To(Succeed())
				Expect(resolver.ResolveAll(ctx).Review).To(Equal(1))
				Expect(pendingIDs(resolver)).To(ConsistOf(id(3)))
			})

			It("offers a revision newer than the declined one", func() {
				pending, _ := resolver.State().Snapshot().Pending(id(3))
				Expect(resolver.Reject(ctx, pending)).To(Succeed())

				service.publish(id(3), link{Revision: 3, Name: "v3", Updated: day(5), Tests: []string{"tor"}})
				Expect(resolver.ResolveAll(ctx).Review).To(Equal(1))

				next, ok := resolver.State().Snapshot().Pending(id(3))
				Expect(ok).To(BeTrue())
				Expect(next.Revision).To(Equal(int64(3)))
				Expect(resolver.Reject(ctx, next)).To(Succeed())
			})

			It("keeps going when some fetches fail and logs the failures", func() {
				service.fail(id(1), http.StatusServiceUnavailable)
				service.publish(id(4), link{Revision: 5, Name: "v5.1", Updated: day(6), Tests: []string{"signal"}})

				report := resolver.ResolveAll(ctx)
				Expect(report.Failed).To(Equal(1))
				Expect(report.Errors).To(HaveKey(id(1)))
				Expect(report.Minor).To(Equal(1))
				Expect(report.AllFailed()).To(BeFalse())
				Expect(latest(store)[id(4)].Name).To(Equal("v5.1"))

				sessions, err := pklog.ListSessions(logsDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(sessions).NotTo(BeEmpty())
				content, err := pklog.ReadDescriptorLog(sessions[0].Dir, id(1))
				Expect(err).NotTo(HaveOccurred())
				Expect(content).To(ContainSubstring("503"))
				Expect(sessions[0].PassID).To(Equal(report.PassID[:8]))
			})

			It("looks like no updates when every fetch fails", func() {
				for n := 1; n <= 4; n++ {
					service.fail(id(n), http.StatusBadGateway)
				}
				before := latest(store)

				report := resolver.ResolveAll(ctx)
				Expect(report.AllFailed()).To(BeTrue())
				Expect(latest(store)).To(Equal(before))

				snap := resolver.State().Snapshot()
				Expect(snap.OperationState).To(Equal(updates.Idle))
				Expect(snap.AvailableUpdates).To(BeEmpty())
			})

			It("restores the previous state when the pass is canceled", func() {
				service.publish(id(2), link{Revision: 9, Name: "v9", Updated: day(7)})
				canceled, cancel := context.WithCancel(ctx)
				cancel()

				targets, err := store.ListLatest(ctx)
				Expect(err).NotTo(HaveOccurred())
				before := resolver.State().Snapshot()
				report := resolver.Resolve(canceled, targets)

				Expect(report.Canceled).To(BeTrue())
				Expect(resolver.State().Snapshot()).To(Equal(before))
				Expect(latest(store)[id(2)].Revision).To(Equal(int64(2)))
			})

			It("never contacts the service for built-in suites", func() {
				suites := descriptor.Defaults()
				report := resolver.Resolve(ctx, suites)
				Expect(report.Checked).To(BeZero())
				for _, s := range suites {
					Expect(service.requestCount(s.ID)).To(BeZero())
				}
			})
		})
	}
})
