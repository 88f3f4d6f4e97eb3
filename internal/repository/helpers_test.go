package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var listingCols = []string{"id", "owner_id", "owner_name", "category", "subcategory", "brand", "model",
	"price_per_hour_cents", "stock", "rented", "delivery_status", "images", "created_at", "updated_at"}

func listingRow(id, owner uint64, stock, rented int, status string) *sqlmock.Rows {
	return sqlmock.NewRows(listingCols).AddRow(id, owner, "Acme Rentals", "drums", "", "Brand1", "D-100",
		int64(1250), stock, rented, status, []byte(`["images/1-a.png"]`), fixedTime, fixedTime)
}

var requestCols = []string{"id", "listing_id", "customer_name", "contact_number", "identity_document", "quantity",
	"duration_hours", "price_per_hour_cents", "total_price_cents", "status", "idempotency_key", "created_at", "updated_at"}

func requestRow(id, listingID uint64, qty int, status string, key any) *sqlmock.Rows {
	return sqlmock.NewRows(requestCols).AddRow(id, listingID, "Jane", "9876543210", "documents/1-x.pdf", qty,
		3, int64(1250), int64(1250*3*qty), status, key, fixedTime, fixedTime)
}
