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

var _ = Describe("jurisdiction store", Ordered, func() {
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
		gormdb.Exec("DELETE FROM bills;")
		gormdb.Exec("DELETE FROM jurisdictions;")
	})

	Context("upsert", func() {
		It("creates a jurisdiction", func() {
			j, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Parliament of Canada",
				Type: model.JurisdictionTypeFederal,
			})
			Expect(err).To(BeNil())
			Expect(j.ID).NotTo(Equal(uuid.UUID{}))
		})

		It("dedupes on name and type and keeps the canonical id", func() {
			first, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Toronto City Council",
				Type: model.JurisdictionTypeMunicipal,
			})
			Expect(err).To(BeNil())

			second, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Toronto City Council",
				Type: model.JurisdictionTypeMunicipal,
				URL:  "https://www.toronto.ca/council",
			})
			Expect(err).To(BeNil())
			Expect(second.ID).To(Equal(first.ID))

			jurisdictions, err := s.Jurisdiction().List(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(jurisdictions).To(HaveLen(1))

			got, err := s.Jurisdiction().Get(context.TODO(), second.ID)
			Expect(err).To(BeNil())
			Expect(got.URL).To(Equal("https://www.toronto.ca/council"))
		})

		It("lets bills attach to the jurisdiction across re-upserts", func() {
			first, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Parliament of Canada",
				Type: model.JurisdictionTypeFederal,
			})
			Expect(err).To(BeNil())

			created, err := s.Bill().Upsert(context.TODO(), model.Bill{JurisdictionID: first.ID, Identifier: "C-5"})
			Expect(err).To(BeNil())
			Expect(created).To(BeTrue())

			second, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Parliament of Canada",
				Type: model.JurisdictionTypeFederal,
			})
			Expect(err).To(BeNil())

			created, err = s.Bill().Upsert(context.TODO(), model.Bill{JurisdictionID: second.ID, Identifier: "C-5"})
			Expect(err).To(BeNil())
			Expect(created).To(BeFalse())

			count, err := s.Bill().Count(context.TODO())
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})
	})

	Context("list", func() {
		BeforeEach(func() {
			seed := []model.Jurisdiction{
				{Name: "Parliament of Canada", Type: model.JurisdictionTypeFederal},
				{Name: "Legislative Assembly of Ontario", Type: model.JurisdictionTypeProvincial, Province: "ON"},
				{Name: "National Assembly of Quebec", Type: model.JurisdictionTypeProvincial, Province: "QC"},
			}
			for _, j := range seed {
				_, err := s.Jurisdiction().Upsert(context.TODO(), j)
				Expect(err).To(BeNil())
			}
		})

		It("filters by type", func() {
			jurisdictions, err := s.Jurisdiction().List(context.TODO(), store.NewJurisdictionQueryFilter().ByType(model.JurisdictionTypeProvincial))
			Expect(err).To(BeNil())
			Expect(jurisdictions).To(HaveLen(2))
		})

		It("filters by province", func() {
			jurisdictions, err := s.Jurisdiction().List(context.TODO(), store.NewJurisdictionQueryFilter().ByProvince("QC"))
			Expect(err).To(BeNil())
			Expect(jurisdictions).To(HaveLen(1))
			Expect(jurisdictions[0].Name).To(Equal("National Assembly of Quebec"))
		})

		It("orders by name", func() {
			jurisdictions, err := s.Jurisdiction().List(context.TODO(), nil)
			Expect(err).To(BeNil())
			Expect(jurisdictions).To(HaveLen(3))
			Expect(jurisdictions[0].Name).To(Equal("Legislative Assembly of Ontario"))
		})
	})

	Context("statistics", func() {
		It("aggregates counts across tables", func() {
			j, err := s.Jurisdiction().Upsert(context.TODO(), model.Jurisdiction{
				Name: "Parliament of Canada",
				Type: model.JurisdictionTypeFederal,
			})
			Expect(err).To(BeNil())

			_, err = s.Bill().Upsert(context.TODO(), model.Bill{JurisdictionID: j.ID, Identifier: "C-5"})
			Expect(err).To(BeNil())
			_, err = s.Bill().Upsert(context.TODO(), model.Bill{JurisdictionID: j.ID, Identifier: "C-12"})
			Expect(err).To(BeNil())

			stats, err := s.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.TotalJurisdictions).To(Equal(int64(1)))
			Expect(stats.FederalJurisdictions).To(Equal(int64(1)))
			Expect(stats.ProvincialJurisdictions).To(Equal(int64(0)))
			Expect(stats.TotalBills).To(Equal(int64(2)))
		})
	})
})
