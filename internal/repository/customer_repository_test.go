package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentals-marketplace/internal/model"
)

func TestCustomerRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerRepo(db)
	ctx := context.Background()

	c := &model.CustomerInfo{IDNumber: "123412341234", Name: "John Doe", ContactNumber: "9876543210",
		Location: "Pune", DocumentPath: "documents/1-a.pdf", SubmittedBy: 5}

	mock.ExpectExec("INSERT INTO customers").
		WithArgs("123412341234", "John Doe", "9876543210", "Pune", "documents/1-a.pdf", uint64(5)).
		WillReturnResult(sqlmock.NewResult(3, 1))
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, uint64(3), c.ID)

	mock.ExpectExec("INSERT INTO customers").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.ErrorIs(t, repo.Create(ctx, &model.CustomerInfo{IDNumber: "123412341234"}), ErrDuplicate)
}
