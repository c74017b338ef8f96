package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservationTest(t *testing.T) (*ReservationService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	pgDB := &database.PostgresDB{DB: sqlxDB}
	logger := testLogger()

	bookingRepo := database.NewBookingRepository(sqlxDB)
	ticketRepo := database.NewTicketRepository(sqlxDB)
	vehicleRepo := database.NewVehicleRepository(sqlxDB)
	paymentRepo := database.NewPaymentRepository(sqlxDB)
	logRepo := database.NewBookingLogRepository(sqlxDB)
	scheduleRepo := database.NewScheduleRepository(sqlxDB)
	routeRepo := database.NewRouteRepository(sqlxDB)
	ferryRepo := database.NewFerryRepository(sqlxDB)
	scheduleDateRepo := database.NewScheduleDateRepository(sqlxDB)
	sink := notify.NewLogSink(logger)
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}

	ledger := NewCapacityLedger(scheduleDateRepo, logger)
	statusService := NewBookingStatusService(pgDB, bookingRepo, ticketRepo, logRepo, ledger, sink, logger)
	midtrans := NewMidtransService(&config.MidtransConfig{Environment: "sandbox"}, logger)
	identity := NewIdentityService(&config.IdentityConfig{}, logger)

	svc := NewReservationService(
		pgDB, bookingRepo, ticketRepo, vehicleRepo, paymentRepo, logRepo,
		scheduleRepo, routeRepo, ferryRepo,
		ledger, statusService, midtrans, identity,
		sink, clock,
		&config.BookingConfig{PaymentExpiry: 24 * time.Hour, SearchWindowDays: 7},
		logger,
	)
	return svc, mock
}

var routeCols = []string{
	"id", "origin", "destination", "base_price", "motorcycle_price",
	"car_price", "bus_price", "truck_price", "duration_minutes",
	"created_at", "updated_at",
}

func routeRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(routeCols).AddRow(
		"route-1", "Merak", "Bakauheni", 50000.0, 25000.0, 150000.0,
		400000.0, 450000.0, 120, now, now,
	)
}

func TestCreateBookingInsufficientCapacityRollsBack(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.CreateBookingRequest{
		ScheduleID:    "sched-1",
		DepartureDate: "2026-09-07",
		Passengers: []models.PassengerRequest{
			{Name: "Andi"}, {Name: "Budi"},
		},
		PaymentMethod: models.PaymentMethodCounter,
	}

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-1").
		WillReturnRows(capacityRows(50))
	mock.ExpectQuery("SELECT(.|\n)+FROM routes").
		WithArgs("sched-1").
		WillReturnRows(routeRow())

	// The sailing has one seat left; two passengers requested. Nothing after
	// the reserve check may run and the transaction must roll back.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO schedule_dates").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates(.|\n)+FOR UPDATE").
		WillReturnRows(scheduleDateRow("sd-1", 49, 0, 0, 0, 0, "available"))
	mock.ExpectRollback()

	result, err := svc.CreateBooking("user-1", req)
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *models.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "passenger", insufficient.Class)
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

var ticketCols = []string{
	"id", "booking_id", "ticket_code", "passenger_name", "passenger_id_number",
	"status", "boarding_status", "checked_in", "checked_in_at", "created_at", "updated_at",
}

func ticketRows(bookingID string, names ...string) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows(ticketCols)
	for i, name := range names {
		rows.AddRow(
			fmt.Sprintf("tkt-%d", i+1), bookingID, fmt.Sprintf("TKT-20260901-%08d", i+1),
			name, nil, "active", "not_boarded", false, nil, now, now,
		)
	}
	return rows
}

func TestRescheduleBookingFullSailingKeepsOriginal(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.RescheduleBookingRequest{
		ScheduleID:    "sched-2",
		DepartureDate: "2026-09-07",
	}

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-2").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-2", "0,1,2,3,4,5,6"))
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-2").
		WillReturnRows(capacityRows(50))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id(.|\n)+FOR UPDATE").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260831-AAAAAA", models.BookingStatusConfirmed, 2, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM tickets").
		WithArgs("bk-1").
		WillReturnRows(ticketRows("bk-1", "Andi", "Budi"))
	mock.ExpectQuery("SELECT(.|\n)+FROM vehicles").
		WithArgs("bk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "type", "license_plate", "owner_name", "created_at", "updated_at"}))
	mock.ExpectQuery("SELECT(.|\n)+FROM payments").
		WithArgs("bk-1").
		WillReturnRows(settledPaymentRow("pay-1", "bk-1", "FRY-20260831-AAAAAA", models.PaymentStatusSuccess))

	// The original terminates as rescheduled inside the transaction,
	// releasing its sailing's capacity.
	mock.ExpectExec("UPDATE bookings").
		WithArgs("bk-1", "confirmed", "rescheduled", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO schedule_dates").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates(.|\n)+FOR UPDATE").
		WillReturnRows(scheduleDateRow("sd-old", 10, 0, 0, 0, 0, "available"))
	mock.ExpectExec("UPDATE schedule_dates").
		WithArgs("sd-old", 2, 0, 0, 0, 0, "available").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO booking_logs").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	// The target sailing has one seat left for two passengers: the reserve
	// fails and the whole transaction rolls back, so the original booking
	// stays confirmed and no replacement is created.
	mock.ExpectExec("INSERT INTO schedule_dates").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates(.|\n)+FOR UPDATE").
		WillReturnRows(scheduleDateRow("sd-new", 49, 0, 0, 0, 0, "available"))
	mock.ExpectRollback()

	result, err := svc.RescheduleBooking("bk-1", "user-1", models.ActorTypeUser, req)
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *models.InsufficientCapacityError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "passenger", insufficient.Class)
	assert.Equal(t, 2, insufficient.Requested)
	assert.Equal(t, 1, insufficient.Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleBookingRejectsNonConfirmed(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.RescheduleBookingRequest{
		ScheduleID:    "sched-2",
		DepartureDate: "2026-09-07",
	}

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-2").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-2", "0,1,2,3,4,5,6"))
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-2").
		WillReturnRows(capacityRows(50))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE id(.|\n)+FOR UPDATE").
		WithArgs("bk-1").
		WillReturnRows(bookingRow("bk-1", "FRY-20260831-AAAAAA", models.BookingStatusPending, 2, 0))
	mock.ExpectRollback()

	result, err := svc.RescheduleBooking("bk-1", "user-1", models.ActorTypeUser, req)
	assert.Nil(t, result)

	var invalid *models.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingByCode(t *testing.T) {
	svc, mock := newReservationTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE booking_code").
		WithArgs("FRY-20260831-AAAAAA").
		WillReturnRows(bookingRow("bk-1", "FRY-20260831-AAAAAA", models.BookingStatusConfirmed, 2, 0))
	mock.ExpectQuery("SELECT(.|\n)+FROM tickets").
		WithArgs("bk-1").
		WillReturnRows(ticketRows("bk-1", "Andi", "Budi"))
	mock.ExpectQuery("SELECT(.|\n)+FROM vehicles").
		WithArgs("bk-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "type", "license_plate", "owner_name", "created_at", "updated_at"}))
	mock.ExpectQuery("SELECT(.|\n)+FROM payments").
		WithArgs("bk-1").
		WillReturnRows(settledPaymentRow("pay-1", "bk-1", "FRY-20260831-AAAAAA", models.PaymentStatusSuccess))

	result, err := svc.GetBookingByCode("FRY-20260831-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "bk-1", result.Booking.ID)
	assert.Len(t, result.Tickets, 2)
	require.NotNil(t, result.Payment)
	assert.Equal(t, models.PaymentStatusSuccess, result.Payment.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingByCodeNotFound(t *testing.T) {
	svc, mock := newReservationTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM bookings WHERE booking_code").
		WithArgs("FRY-20260831-ZZZZZZ").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	result, err := svc.GetBookingByCode("FRY-20260831-ZZZZZZ")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingMissingFerryIsNotFound(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.CreateBookingRequest{
		ScheduleID:    "sched-1",
		DepartureDate: "2026-09-07",
		Passengers:    []models.PassengerRequest{{Name: "Andi"}},
		PaymentMethod: models.PaymentMethodCounter,
	}

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))

	// No ferry row joins to the schedule: the booking fails cleanly before
	// any transaction is opened.
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"capacity_passenger", "capacity_motorcycle", "capacity_car",
			"capacity_bus", "capacity_truck",
		}))

	result, err := svc.CreateBooking("user-1", req)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsNonOperatingDay(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.CreateBookingRequest{
		ScheduleID:    "sched-1",
		DepartureDate: "2026-09-08", // Tuesday
		Passengers:    []models.PassengerRequest{{Name: "Andi"}},
		PaymentMethod: models.PaymentMethodCounter,
	}

	// Schedule runs Mondays only; no transaction is ever opened.
	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "1"))

	result, err := svc.CreateBooking("user-1", req)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrScheduleNotOperating)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingRejectsInactiveSchedule(t *testing.T) {
	svc, mock := newReservationTest(t)

	req := &models.CreateBookingRequest{
		ScheduleID:    "sched-1",
		DepartureDate: "2026-09-07",
		Passengers:    []models.PassengerRequest{{Name: "Andi"}},
		PaymentMethod: models.PaymentMethodCounter,
	}

	now := time.Now()
	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(sqlmock.NewRows(scheduleCols).AddRow(
			"sched-1", "route-1", "ferry-1", "08:00", "10:30",
			"0,1,2,3,4,5,6", "cancelled", nil, nil, now, now,
		))

	result, err := svc.CreateBooking("user-1", req)
	assert.Nil(t, result)

	var unavailable *models.ScheduleUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "cancelled", unavailable.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}
