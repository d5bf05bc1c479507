package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"atendo.app/desk/internal/model"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

type mockMergeService struct {
	mergeDuplicatesFn func(ctx context.Context, survivor *model.Contact) (*service.MergeReport, error)
	mergeCalls        int
}

func (m *mockMergeService) Merge(ctx context.Context, survivorID, duplicateID int64) (*service.MergeReport, error) {
	return &service.MergeReport{SurvivorID: survivorID}, nil
}

func (m *mockMergeService) MergeDuplicates(ctx context.Context, survivor *model.Contact) (*service.MergeReport, error) {
	m.mergeCalls++
	if m.mergeDuplicatesFn != nil {
		return m.mergeDuplicatesFn(ctx, survivor)
	}
	return &service.MergeReport{SurvivorID: survivor.ID}, nil
}

func (m *mockMergeService) ScanLinkedDeviceArtifacts(ctx context.Context, companyID int64) (*service.ScanReport, error) {
	return &service.ScanReport{}, nil
}

var _ = Describe("ContactService", func() {
	const companyID int64 = 100

	var (
		ctx      context.Context
		contacts *mockContactStore
		merge    *mockMergeService
		svc      service.ContactService
	)

	str := func(s string) *string { return &s }

	BeforeEach(func() {
		ctx = context.Background()
		contacts = &mockContactStore{}
		merge = &mockMergeService{}
		svc = service.NewContactService(contacts, merge)

		contacts.getByIDFn = func(_ context.Context, id int64) (*model.Contact, error) {
			if id != 1 {
				return nil, store.ErrNotFound
			}
			return &model.Contact{ID: 1, CompanyID: companyID, Name: "Alice", Number: "5537991470016"}, nil
		}
	})

	Describe("Update", func() {
		It("applies field changes without merging when the number is untouched", func() {
			var updated *model.Contact
			contacts.updateFn = func(_ context.Context, c *model.Contact) error {
				updated = c
				return nil
			}

			contact, err := svc.Update(ctx, companyID, 1, service.UpdateContactInput{
				Name:  str("Alice Silva"),
				Email: str("alice@example.com"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated).NotTo(BeNil())
			Expect(contact.Name).To(Equal("Alice Silva"))
			Expect(contact.Email).To(Equal("alice@example.com"))
			Expect(merge.mergeCalls).To(BeZero())
		})

		It("normalizes and stores a changed number, then merges duplicates", func() {
			contact, err := svc.Update(ctx, companyID, 1, service.UpdateContactInput{
				Number: str("+55 (37) 98888-7766"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(contact.Number).To(Equal("5537988887766"))
			Expect(merge.mergeCalls).To(Equal(1))
		})

		It("does not merge when the new number equals the current one", func() {
			_, err := svc.Update(ctx, companyID, 1, service.UpdateContactInput{
				Number: str("5537991470016"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(merge.mergeCalls).To(BeZero())
		})

		It("rejects an invalid number before writing", func() {
			updateCalled := false
			contacts.updateFn = func(_ context.Context, _ *model.Contact) error {
				updateCalled = true
				return nil
			}

			_, err := svc.Update(ctx, companyID, 1, service.UpdateContactInput{
				Number: str("12345"),
			})

			Expect(err).To(MatchError(service.ErrInvalidNumber))
			Expect(updateCalled).To(BeFalse())
		})

		It("propagates a merge failure", func() {
			merge.mergeDuplicatesFn = func(_ context.Context, _ *model.Contact) (*service.MergeReport, error) {
				return nil, context.DeadlineExceeded
			}

			_, err := svc.Update(ctx, companyID, 1, service.UpdateContactInput{
				Number: str("5537988887766"),
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects updates across companies", func() {
			_, err := svc.Update(ctx, companyID+1, 1, service.UpdateContactInput{Name: str("Bob")})
			Expect(err).To(MatchError(service.ErrForbidden))
		})

		It("reports unknown contacts", func() {
			_, err := svc.Update(ctx, companyID, 404, service.UpdateContactInput{Name: str("Bob")})
			Expect(err).To(MatchError(service.ErrContactNotFound))
		})
	})
})
