package services

import (
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

var scheduleCols = []string{
	"id", "route_id", "ferry_id", "departure_time", "arrival_time",
	"days_of_week", "status", "status_reason", "status_expiry",
	"created_at", "updated_at",
}

func scheduleRow(rows *sqlmock.Rows, id, daysOfWeek string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "route-1", "ferry-1", "08:00", "10:30",
		daysOfWeek, "active", nil, nil, now, now,
	)
}

func capacityRows(passenger int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"capacity_passenger", "capacity_motorcycle", "capacity_car",
		"capacity_bus", "capacity_truck",
	}).AddRow(passenger, 10, 5, 2, 2)
}

func newScheduleServiceTest(t *testing.T) (*ScheduleService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := testLogger()
	svc := NewScheduleService(
		database.NewScheduleRepository(sqlxDB),
		database.NewScheduleDateRepository(sqlxDB),
		database.NewFerryRepository(sqlxDB),
		notify.NewLogSink(logger),
		fixedClock{now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)},
		&config.BookingConfig{SearchWindowDays: 7},
		logger,
	)
	return svc, mock
}

func TestCascadeDateStatus(t *testing.T) {
	tests := []struct {
		scheduleStatus models.ScheduleStatus
		dateStatus     models.ScheduleDateStatus
		cascades       bool
	}{
		{models.ScheduleStatusCancelled, models.ScheduleDateStatusCancelled, true},
		{models.ScheduleStatusDelayed, models.ScheduleDateStatusUnavailable, true},
		{models.ScheduleStatusActive, models.ScheduleDateStatusAvailable, true},
		{models.ScheduleStatusFull, "", false},
	}

	for _, tt := range tests {
		dateStatus, cascades := cascadeDateStatus(tt.scheduleStatus)
		assert.Equal(t, tt.cascades, cascades, "schedule status %s", tt.scheduleStatus)
		assert.Equal(t, tt.dateStatus, dateStatus, "schedule status %s", tt.scheduleStatus)
	}
}

func TestUpdateScheduleStatusCascadesToScheduleControlledDates(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))
	mock.ExpectExec("UPDATE schedules").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Only rows the schedule still controls follow the cascade; manual
	// operator overrides are left alone.
	reason := "dock maintenance"
	mock.ExpectExec("UPDATE schedule_dates(.|\n)+modified_by_schedule = TRUE").
		WithArgs("sched-1", sqlmock.AnyArg(), models.ScheduleDateStatusCancelled, &reason).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := svc.UpdateScheduleStatus("sched-1", models.ScheduleStatusCancelled, &reason, nil)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScheduleStatusFullDoesNotCascade(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules WHERE id").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))
	mock.ExpectExec("UPDATE schedules").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.UpdateScheduleStatus("sched-1", models.ScheduleStatusFull, nil, nil)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearestAvailableSkipsFullDate(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)
	fromDate := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules").
		WithArgs("route-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))

	// Requested date is sold out.
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-1").
		WillReturnRows(capacityRows(50))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates").
		WithArgs("sched-1", fromDate).
		WillReturnRows(scheduleDateRow("sd-1", 50, 0, 0, 0, 0, "full"))

	// The next day has no row yet, so the full capacity is free.
	nextDate := fromDate.AddDate(0, 0, 1)
	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-1").
		WillReturnRows(capacityRows(50))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates").
		WithArgs("sched-1", nextDate).
		WillReturnRows(sqlmock.NewRows(scheduleDateCols))

	result, err := svc.FindNearestAvailable("route-1", fromDate, 4, models.VehicleCounts{Cars: 1})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "sched-1", result.ScheduleID)
	assert.Equal(t, nextDate, result.Date)
	assert.Equal(t, 50, result.Remaining.Passenger)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearestAvailablePrefersEmptierSailing(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)
	fromDate := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	rows := scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6")
	rows = scheduleRow(rows, "sched-2", "0,1,2,3,4,5,6")
	mock.ExpectQuery("SELECT(.|\n)+FROM schedules").
		WithArgs("route-1").
		WillReturnRows(rows)

	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-1").
		WillReturnRows(capacityRows(50))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates").
		WithArgs("sched-1", fromDate).
		WillReturnRows(scheduleDateRow("sd-1", 30, 0, 0, 0, 0, "available"))

	mock.ExpectQuery("SELECT(.|\n)+FROM ferries").
		WithArgs("sched-2").
		WillReturnRows(capacityRows(50))
	mock.ExpectQuery("SELECT(.|\n)+FROM schedule_dates").
		WithArgs("sched-2", fromDate).
		WillReturnRows(scheduleDateRow("sd-2", 10, 0, 0, 0, 0, "available"))

	result, err := svc.FindNearestAvailable("route-1", fromDate, 2, models.VehicleCounts{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "sched-2", result.ScheduleID)
	assert.Equal(t, 40, result.Remaining.Passenger)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindNearestAvailableNoSchedulesOnRoute(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules").
		WithArgs("route-9").
		WillReturnRows(sqlmock.NewRows(scheduleCols))

	result, err := svc.FindNearestAvailable("route-9", time.Now(), 1, models.VehicleCounts{})
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateDatesHonorsOperatingDays(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)

	// Monday and Wednesday only.
	mock.ExpectQuery("SELECT(.|\n)+FROM schedules").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "1,3"))

	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO schedule_dates").
		WithArgs(sqlmock.AnyArg(), "sched-1", monday).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO schedule_dates").
		WithArgs(sqlmock.AnyArg(), "sched-1", wednesday).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := svc.GenerateDates("sched-1", monday, sunday)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateDatesSkipsExistingRows(t *testing.T) {
	svc, mock := newScheduleServiceTest(t)

	mock.ExpectQuery("SELECT(.|\n)+FROM schedules").
		WithArgs("sched-1").
		WillReturnRows(scheduleRow(sqlmock.NewRows(scheduleCols), "sched-1", "0,1,2,3,4,5,6"))

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO schedule_dates").
		WithArgs(sqlmock.AnyArg(), "sched-1", day).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := svc.GenerateDates("sched-1", day, day)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}
