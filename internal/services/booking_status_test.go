package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "booking_code", "user_id", "schedule_id", "departure_date",
	"passenger_count", "vehicle_count", "motorcycle_count", "car_count",
	"bus_count", "truck_count", "total_amount", "status", "cancellation_reason",
	"rescheduled_from_id", "rescheduled_to_id", "created_at", "updated_at",
}

func bookingRow(id, code string, status models.BookingStatus, passengers, cars int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingCols).AddRow(
		id, code, "user-1", "sched-1", now.AddDate(0, 0, 1),
		passengers, cars, 0, cars, 0, 0, 350000.0, status, nil,
		nil, nil, now, now,
	)
}

func newStatusServiceTest(t *testing.T) (*BookingStatusService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	pgDB := &database.PostgresDB{DB: sqlxDB}

	logger := testLogger()
	svc := NewBookingStatusService(
		pgDB,
		database.NewBookingRepository(sqlxDB),
		database.NewTicketRepository(sqlxDB),
		database.NewBookingLogRepository(sqlxDB),
		NewCapacityLedger(database.NewScheduleDateRepository(sqlxDB), logger),
		notify.NewLogSink(logger),
		logger,
	)
	return svc, mock
}

func TestTransitionCancelReleasesCapacity(t *testing.T) {
	svc, mock := newStatusServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260901-A1B2C3", models.BookingStatusConfirmed, 2, 1))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs("bk-1", "confirmed", "cancelled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO schedule_dates").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates(.|\n)+FOR UPDATE").
		WillReturnRows(scheduleDateRow("sd-1", 10, 0, 1, 0, 0, "available"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-1", 2, 0, 1, 0, 0, "available").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO booking_logs").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	reason := "change of plans"
	booking, err := svc.Transition("bk-1", models.BookingStatusCancelled, models.ActorTypeUser, nil, &reason)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionCompletedDoesNotReleaseCapacity(t *testing.T) {
	svc, mock := newStatusServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260901-A1B2C3", models.BookingStatusConfirmed, 2, 0))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs("bk-1", "confirmed", "completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 2))
	// No schedule_dates statements: completion keeps the capacity consumed.
	mock.ExpectQuery("INSERT INTO booking_logs").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	_, err := svc.Transition("bk-1", models.BookingStatusCompleted, models.ActorTypeSystem, nil, nil)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	svc, mock := newStatusServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260901-A1B2C3", models.BookingStatusExpired, 2, 0))

	_, err := svc.Transition("bk-1", models.BookingStatusConfirmed, models.ActorTypeSystem, nil, nil)
	require.Error(t, err)

	var invalid *models.InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)

	// Rejected before any transaction started.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionConcurrentWriterWins(t *testing.T) {
	svc, mock := newStatusServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260901-A1B2C3", models.BookingStatusPending, 2, 0))

	// Another writer moved the booking between the read and the update:
	// the conditional WHERE matches zero rows and the whole tx rolls back.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WithArgs("bk-1", "pending", "confirmed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Transition("bk-1", models.BookingStatusConfirmed, models.ActorTypeSystem, nil, nil)
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}
