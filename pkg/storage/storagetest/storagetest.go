// Package storagetest holds the behaviour every storage.Driver must share.
// Backend test suites call DescribeDriver with a constructor for a fresh,
// empty store.
package storagetest

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitwall/pkg/artifact"
	"github.com/papercomputeco/pitwall/pkg/storage"
)

// DescribeDriver registers the shared driver specs under name.
func DescribeDriver(name string, newDriver func() storage.Driver) bool {
	return Describe(name+" driver contract", func() {
		var (
			driver storage.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = newDriver()
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		Describe("events", func() {
			It("returns NotFoundError for an unknown triple", func() {
				_, err := driver.FindEvent(ctx, 2025, "Imola", "COL")
				Expect(err).To(HaveOccurred())
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("stores and finds an event by its triple", func() {
				id, err := driver.InsertEvent(ctx, 2025, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())
				Expect(id).To(BeNumerically(">", 0))

				event, err := driver.FindEvent(ctx, 2025, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())
				Expect(event.ID).To(Equal(id))
				Expect(event.Season).To(Equal(2025))
				Expect(event.GP).To(Equal("Imola"))
				Expect(event.Driver).To(Equal("COL"))
				Expect(event.CreatedAt).NotTo(BeZero())
			})

			It("rejects a second insert of the same triple", func() {
				_, err := driver.InsertEvent(ctx, 2025, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.InsertEvent(ctx, 2025, "Imola", "COL")
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, storage.ErrDuplicate)).To(BeTrue())

				events, err := driver.ListEvents(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(events).To(HaveLen(1))
			})

			It("treats triples differing in any field as distinct", func() {
				_, err := driver.InsertEvent(ctx, 2025, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.InsertEvent(ctx, 2024, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.InsertEvent(ctx, 2025, "Monaco", "COL")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.InsertEvent(ctx, 2025, "Imola", "ALB")
				Expect(err).NotTo(HaveOccurred())

				events, err := driver.ListEvents(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(events).To(HaveLen(4))
				Expect(events[0].ID).To(BeNumerically("<", events[1].ID))
			})

			It("lets exactly one of many concurrent inserts win", func() {
				const workers = 8

				var (
					wg         sync.WaitGroup
					mu         sync.Mutex
					successes  int
					duplicates int
				)
				for range workers {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()

						_, err := driver.InsertEvent(ctx, 2025, "Imola", "COL")

						mu.Lock()
						defer mu.Unlock()
						switch {
						case err == nil:
							successes++
						case errors.Is(err, storage.ErrDuplicate):
							duplicates++
						default:
							Fail("unexpected insert error: " + err.Error())
						}
					}()
				}
				wg.Wait()

				Expect(successes).To(Equal(1))
				Expect(duplicates).To(Equal(workers - 1))
			})
		})

		Describe("artifacts", func() {
			var eventID int64

			BeforeEach(func() {
				var err error
				eventID, err = driver.InsertEvent(ctx, 2025, "Imola", "COL")
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns NotFoundError for a missing artifact", func() {
				_, err := driver.FindArtifact(ctx, eventID, artifact.QualyResults)
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("stores and finds an artifact", func() {
				id, err := driver.InsertArtifact(ctx, eventID, artifact.QualyResults, "/media/q.png", "qualy")
				Expect(err).NotTo(HaveOccurred())
				Expect(id).To(BeNumerically(">", 0))

				a, err := driver.FindArtifact(ctx, eventID, artifact.QualyResults)
				Expect(err).NotTo(HaveOccurred())
				Expect(a.ID).To(Equal(id))
				Expect(a.EventID).To(Equal(eventID))
				Expect(a.Name).To(Equal(artifact.QualyResults))
				Expect(a.Path).To(Equal("/media/q.png"))
				Expect(a.Description).To(Equal("qualy"))
			})

			It("rejects an artifact referencing a missing event", func() {
				_, err := driver.InsertArtifact(ctx, eventID+1000, artifact.QualyResults, "/media/q.png", "qualy")
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, storage.ErrForeignKey)).To(BeTrue())
			})

			It("rejects a second artifact with the same name for the event", func() {
				_, err := driver.InsertArtifact(ctx, eventID, artifact.QualyResults, "/media/q.png", "qualy")
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.InsertArtifact(ctx, eventID, artifact.QualyResults, "/media/other.png", "other")
				Expect(errors.Is(err, storage.ErrDuplicate)).To(BeTrue())

				a, err := driver.FindArtifact(ctx, eventID, artifact.QualyResults)
				Expect(err).NotTo(HaveOccurred())
				Expect(a.Path).To(Equal("/media/q.png"))
			})

			It("lists the artifacts of one event in insertion order", func() {
				otherID, err := driver.InsertEvent(ctx, 2025, "Monaco", "COL")
				Expect(err).NotTo(HaveOccurred())

				_, err = driver.InsertArtifact(ctx, eventID, artifact.RaceLapsTimes, "/a.png", "a")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.InsertArtifact(ctx, otherID, artifact.RaceLapsTimes, "/b.png", "b")
				Expect(err).NotTo(HaveOccurred())
				_, err = driver.InsertArtifact(ctx, eventID, artifact.QualyResults, "/c.png", "c")
				Expect(err).NotTo(HaveOccurred())

				artifacts, err := driver.ListArtifacts(ctx, eventID)
				Expect(err).NotTo(HaveOccurred())
				Expect(artifacts).To(HaveLen(2))
				Expect(artifacts[0].Name).To(Equal(artifact.RaceLapsTimes))
				Expect(artifacts[1].Name).To(Equal(artifact.QualyResults))
			})

			It("returns an empty list for an event with no artifacts", func() {
				artifacts, err := driver.ListArtifacts(ctx, eventID)
				Expect(err).NotTo(HaveOccurred())
				Expect(artifacts).To(BeEmpty())
			})
		})
	})
}
