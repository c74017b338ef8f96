package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleDateCols = []string{
	"id", "schedule_id", "date", "passenger_count", "motorcycle_count", "car_count",
	"bus_count", "truck_count", "status", "status_reason", "status_expiry",
	"modified_by_schedule", "created_at", "updated_at",
}

func newLedgerTest(t *testing.T) (*CapacityLedger, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := database.NewScheduleDateRepository(sqlxDB)
	return NewCapacityLedger(repo, testLogger()), sqlxDB, mock
}

func scheduleDateRow(id string, passengers, motorcycles, cars, buses, trucks int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(scheduleDateCols).AddRow(
		id, "sched-1", now, passengers, motorcycles, cars, buses, trucks,
		status, nil, nil, true, now, now,
	)
}

func expectGetOrCreate(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectExec("INSERT INTO schedule_dates").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates(.|\n)+FOR UPDATE").
		WillReturnRows(rows)
}

func TestReserveWithinCapacity(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)
	capacity := models.FerryCapacity{Passenger: 50, Motorcycle: 10, Car: 5, Bus: 2, Truck: 2}

	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 48, 0, 0, 0, 0, "available"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-1", 2, 0, 1, 0, 0, "available").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	sd, err := ledger.Reserve(tx, "sched-1", time.Now(), capacity, 2, models.VehicleCounts{Cars: 1})
	require.NoError(t, err)
	assert.Equal(t, 50, sd.PassengerCount)
	assert.Equal(t, 1, sd.CarCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveOverCapacityChangesNothing(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)
	capacity := models.FerryCapacity{Passenger: 50, Motorcycle: 10, Car: 5, Bus: 2, Truck: 2}

	// 48 of 50 seats taken; 3 more must fail with no counter update.
	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 48, 0, 0, 0, 0, "available"))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	_, err = ledger.Reserve(tx, "sched-1", time.Now(), capacity, 3, models.VehicleCounts{})
	require.Error(t, err)

	var insufficient *models.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "passenger", insufficient.Class)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)

	// No UPDATE was expected; any counter write would fail the mock.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservePartialVehicleOverflow(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)
	capacity := models.FerryCapacity{Passenger: 50, Motorcycle: 10, Car: 5, Bus: 2, Truck: 2}

	// Passengers fit but trucks do not: nothing commits, not even the
	// passenger counter.
	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 10, 0, 0, 0, 2, "available"))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	_, err = ledger.Reserve(tx, "sched-1", time.Now(), capacity, 2, models.VehicleCounts{Trucks: 1})
	require.Error(t, err)

	var insufficient *models.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "truck", insufficient.Class)
	assert.Equal(t, 0, insufficient.Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveFillsLastSlotFlipsToFull(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)
	capacity := models.FerryCapacity{Passenger: 50, Motorcycle: 0, Car: 0, Bus: 0, Truck: 0}

	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 48, 0, 0, 0, 0, "available"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-1", 2, 0, 0, 0, 0, "full").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	sd, err := ledger.Reserve(tx, "sched-1", time.Now(), capacity, 2, models.VehicleCounts{})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleDateStatusFull, sd.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsUnavailableSailing(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)
	capacity := models.FerryCapacity{Passenger: 50, Motorcycle: 10, Car: 5, Bus: 2, Truck: 2}

	statuses := []string{"cancelled", "departed", "weather_issue", "unavailable", "full"}
	for _, status := range statuses {
		t.Run(status, func(t *testing.T) {
			mock.ExpectBegin()
			expectGetOrCreate(mock, scheduleDateRow("sd-1", 0, 0, 0, 0, 0, status))

			tx, err := sqlxDB.Beginx()
			require.NoError(t, err)

			_, err = ledger.Reserve(tx, "sched-1", time.Now(), capacity, 1, models.VehicleCounts{})
			require.Error(t, err)

			var unavailable *models.ScheduleUnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, status, unavailable.Status)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseRestoresCountsAndReopensFullSailing(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)

	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 50, 0, 0, 0, 0, "full"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-1", 2, 0, 0, 0, 0, "available").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	err = ledger.Release(tx, "sched-1", time.Now(), 2, models.VehicleCounts{})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseKeepsCancelledStatus(t *testing.T) {
	ledger, sqlxDB, mock := newLedgerTest(t)

	// Releasing into a cancelled sailing must not reopen it.
	mock.ExpectBegin()
	expectGetOrCreate(mock, scheduleDateRow("sd-1", 10, 0, 0, 0, 0, "cancelled"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-1", 2, 1, 0, 0, 0, "cancelled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := sqlxDB.Beginx()
	require.NoError(t, err)

	err = ledger.Release(tx, "sched-1", time.Now(), 2, models.VehicleCounts{Motorcycles: 1})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
