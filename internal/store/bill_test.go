package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/openpolicy/civicdata/internal/config"
	"github.com/openpolicy/civicdata/internal/store"
	"github.com/openpolicy/civicdata/internal/store/model"
)

var _ = Describe("bill store", Ordered, func() {
	var (
		s       store.Store
		gormdb  *gorm.DB
		federal *model.Jurisdiction
		ontario *model.Jurisdiction
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

	BeforeEach(func() {
		var err error
		federal, err = s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
			Name: "Parliament of Canada",
			Type: model.JurisdictionTypeFederal,
		})
		Expect(err).To(BeNil())

		ontario, err = s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
			Name:     "Legislative Assembly of Ontario",
			Type:     model.JurisdictionTypeProvincial,
			Province: "ON",
		})
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM bills;")
		gormdb.Exec("DELETE FROM jurisdictions;")
	})

	Context("upsert", func() {
		It("creates a new bill", func() {
			created, err := s.Bill().Upsert(context.TODO(), model.Bill{
				JurisdictionID: federal.ID,
				Identifier:     "C-5",
				Title:          "An Act respecting open data",
				Status:         model.BillStatusIntroduced,
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			count, err := s.Bill().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("updates an existing bill in place", func() {
			created, err := s.Bill().Upsert(context.TODO(), model.Bill{
				JurisdictionID: federal.ID,
				Identifier:     "C-5",
				Title:          "An Act respecting open data",
				Status:         model.BillStatusIntroduced,
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			created, err = s.Bill().Upsert(context.TODO(), model.Bill{
				JurisdictionID: federal.ID,
				Identifier:     "C-5",
				Title:          "An Act respecting open data",
				Status:         model.BillStatusSecondReading,
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeFalse())

			bills, err := s.Bill().List(context.TODO(), store.NewBillQueryFilter().ByJurisdictionID(federal.ID.String()), nil)
			Expect(err).To(BeNil())
			Expect(bills).To(HaveLen(1))
			Expect(bills[0].Status).To(Equal(model.BillStatusSecondReading))
		})

		It("keeps bills with the same identifier in different jurisdictions apart", func() {
			created, err := s.Bill().Upsert(context.TODO(), model.Bill{
				JurisdictionID: federal.ID,
				Identifier:     "C-5",
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			created, err = s.Bill().Upsert(context.TODO(), model.Bill{
				JurisdictionID: ontario.ID,
				Identifier:     "C-5",
			})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			count, err := s.Bill().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})
	})

	Context("get", func() {
		It("returns not found for an unknown id", func() {
			_, err := s.Bill().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		BeforeEach(func() {
			seed := []model.Bill{
				{JurisdictionID: federal.ID, Identifier: "C-5", Title: "Open Data Act", Status: model.BillStatusIntroduced},
				{JurisdictionID: federal.ID, Identifier: "C-12", Title: "Healthcare Modernization Act", Status: model.BillStatusPassed},
				{JurisdictionID: ontario.ID, Identifier: "124", Title: "Public Sector Compensation Act", Status: model.BillStatusIntroduced},
			}
			for _, b := range seed {
				_, err := s.Bill().Upsert(context.TODO(), b)
				Expect(err).To(BeNil())
			}
		})

		It("filters by jurisdiction", func() {
			bills, err := s.Bill().List(context.TODO(), store.NewBillQueryFilter().ByJurisdictionID(ontario.ID.String()), nil)
			Expect(err).To(BeNil())
			Expect(bills).To(HaveLen(1))
			Expect(bills[0].Identifier).To(Equal("124"))
		})

		It("filters by status", func() {
			bills, err := s.Bill().List(context.TODO(), store.NewBillQueryFilter().ByStatus(model.BillStatusPassed), nil)
			Expect(err).To(BeNil())
			Expect(bills).To(HaveLen(1))
			Expect(bills[0].Identifier).To(Equal("C-12"))
		})

		It("searches title and summary", func() {
			bills, err := s.Bill().List(context.TODO(), store.NewBillQueryFilter().BySearch("healthcare"), nil)
			Expect(err).To(BeNil())
			Expect(bills).To(HaveLen(1))
			Expect(bills[0].Identifier).To(Equal("C-12"))
		})

		It("applies order, limit and offset", func() {
			opts := store.NewBillQueryOptions().WithOrder("identifier").WithLimit(2).WithOffset(1)
			bills, err := s.Bill().List(context.TODO(), nil, opts)
			Expect(err).To(BeNil())
			Expect(bills).To(HaveLen(2))
			Expect(bills[0].Identifier).To(Equal("C-12"))
			Expect(bills[1].Identifier).To(Equal("C-5"))
		})
	})
})
