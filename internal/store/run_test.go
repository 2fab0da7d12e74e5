package store_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

var _ = Describe("scraping run store", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM scraping_runs;")
	})

	Context("create", func() {
		It("creates a run with defaults", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{
				TaskID:            "task-1",
				JurisdictionTypes: "federal",
				Status:            model.RunStatusPending,
			})
			Expect(err).To(BeNil())
			Expect(run.ID).NotTo(Equal(uuid.UUID{}))
			Expect(run.StartedAt.IsZero()).To(BeFalse())

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.RunStatusPending))
			Expect(got.RecordsCreated).To(Equal(0))
		})
	})

	Context("get", func() {
		It("returns not found for an unknown id", func() {
			_, err := s.ScrapingRun().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("mark running", func() {
		It("moves a pending run to running", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusPending})
			Expect(err).To(BeNil())

			Expect(s.ScrapingRun().MarkRunning(context.TODO(), run.ID)).To(BeNil())

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.RunStatusRunning))
		})

		It("leaves a terminal run untouched", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())
			Expect(s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusCompleted, nil)).To(BeNil())

			Expect(s.ScrapingRun().MarkRunning(context.TODO(), run.ID)).To(BeNil())

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.RunStatusCompleted))
		})
	})

	Context("progress", func() {
		It("accumulates counter deltas", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			Expect(s.ScrapingRun().RecordProgress(context.TODO(), run.ID, 2, 1, 0)).To(BeNil())
			Expect(s.ScrapingRun().RecordProgress(context.TODO(), run.ID, 3, 0, 1)).To(BeNil())

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.RecordsCreated).To(Equal(5))
			Expect(got.RecordsUpdated).To(Equal(1))
			Expect(got.ErrorsCount).To(Equal(1))
		})

		It("rejects negative deltas", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			err = s.ScrapingRun().RecordProgress(context.TODO(), run.ID, -1, 0, 0)
			Expect(err).NotTo(BeNil())
		})

		It("treats an all-zero delta as a no-op", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			Expect(s.ScrapingRun().RecordProgress(context.TODO(), run.ID, 0, 0, 0)).To(BeNil())
		})

		It("returns not found for an unknown run", func() {
			err := s.ScrapingRun().RecordProgress(context.TODO(), uuid.New(), 1, 0, 0)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("finalize", func() {
		It("stamps completed_at", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			Expect(s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusCompleted, nil)).To(BeNil())

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.RunStatusCompleted))
			Expect(got.CompletedAt).NotTo(BeNil())
		})

		It("rejects non-terminal statuses", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			err = s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusRunning, nil)
			Expect(err).NotTo(BeNil())
		})

		It("is idempotent for identical arguments", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			message := "boom"
			Expect(s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusFailed, &message)).To(BeNil())
			Expect(s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusFailed, &message)).To(BeNil())
		})

		It("rejects conflicting re-finalization", func() {
			run, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{Status: model.RunStatusRunning})
			Expect(err).To(BeNil())

			message := "cancelled by user"
			Expect(s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusCancelled, &message)).To(BeNil())

			err = s.ScrapingRun().Finalize(context.TODO(), run.ID, model.RunStatusCompleted, nil)
			Expect(err).To(MatchError(store.ErrRunAlreadyFinalized))

			got, err := s.ScrapingRun().Get(context.TODO(), run.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.RunStatusCancelled))
		})
	})

	Context("list", func() {
		It("orders by started_at descending and honors the limit", func() {
			base := time.Now().UTC().Add(-1 * time.Hour)
			for i := 0; i < 3; i++ {
				_, err := s.ScrapingRun().Create(context.TODO(), model.ScrapingRun{
					TaskID:    uuid.NewString(),
					Status:    model.RunStatusCompleted,
					StartedAt: base.Add(time.Duration(i) * time.Minute),
				})
				Expect(err).To(BeNil())
			}

			runs, err := s.ScrapingRun().List(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(runs).To(HaveLen(2))
			Expect(runs[0].StartedAt.After(runs[1].StartedAt)).To(BeTrue())
		})
	})
})
