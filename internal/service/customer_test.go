package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
	"github.com/iliyamo/rentals-marketplace/internal/verify"
)

func customerInput() CustomerInput {
	return CustomerInput{IDNumber: "123412341234", Name: "John Doe", ContactNumber: "9876543210", Location: "Pune", Document: pdf()}
}

func TestSubmitCustomerInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, files := new(MockCustomerStore), newMemFiles()
		svc := NewCustomerService(store, files, verify.NewMockVerifier(), 5<<20)
		store.On("Create", ctx, mock.AnythingOfType("*model.CustomerInfo")).Run(func(args mock.Arguments) {
			args.Get(1).(*model.CustomerInfo).ID = 4
		}).Return(nil)

		c, err := svc.Submit(ctx, owner, customerInput())
		require.NoError(t, err)
		assert.Equal(t, uint64(4), c.ID)
		assert.Equal(t, owner.RenterID, c.SubmittedBy)
		assert.Equal(t, 1, files.count(storage.KindDocument))
	})

	t.Run("Mismatch", func(t *testing.T) {
		store, files := new(MockCustomerStore), newMemFiles()
		svc := NewCustomerService(store, files, verify.NewMockVerifier(), 5<<20)
		in := customerInput()
		in.Name = "Jane Roe"

		_, err := svc.Submit(ctx, owner, in)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Zero(t, files.count(storage.KindDocument))
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Validation", func(t *testing.T) {
		svc := NewCustomerService(new(MockCustomerStore), newMemFiles(), verify.NewMockVerifier(), 5<<20)
		cases := map[string]func(*CustomerInput){
			"id_number":      func(in *CustomerInput) { in.IDNumber = "1234" },
			"name":           func(in *CustomerInput) { in.Name = "" },
			"contact_number": func(in *CustomerInput) { in.ContactNumber = "abc" },
			"location":       func(in *CustomerInput) { in.Location = "" },
			"document":       func(in *CustomerInput) { in.Document = nil },
		}
		for field, mutate := range cases {
			in := customerInput()
			mutate(&in)
			_, err := svc.Submit(ctx, owner, in)
			assert.Equal(t, field, validationField(t, err))
		}
	})

	t.Run("DuplicateRemovesDocument", func(t *testing.T) {
		store, files := new(MockCustomerStore), newMemFiles()
		svc := NewCustomerService(store, files, verify.NewMockVerifier(), 5<<20)
		store.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

		_, err := svc.Submit(ctx, owner, customerInput())
		assert.ErrorIs(t, err, ErrConflict)
		assert.Zero(t, files.count(storage.KindDocument))
	})

	t.Run("Unauthorized", func(t *testing.T) {
		svc := NewCustomerService(new(MockCustomerStore), newMemFiles(), verify.NewMockVerifier(), 5<<20)
		_, err := svc.Submit(ctx, nil, customerInput())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
