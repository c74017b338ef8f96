package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
)

// ReservationService creates, cancels and reschedules bookings. A
// reservation is one transaction: capacity reserve, booking row, tickets,
// vehicles, payment record and audit log commit together or not at all.
type ReservationService struct {
	db            database.DB
	bookingRepo   *database.BookingRepository
	ticketRepo    *database.TicketRepository
	vehicleRepo   *database.VehicleRepository
	paymentRepo   *database.PaymentRepository
	logRepo       *database.BookingLogRepository
	scheduleRepo  *database.ScheduleRepository
	routeRepo     *database.RouteRepository
	ferryRepo     *database.FerryRepository
	ledger        *CapacityLedger
	statusService *BookingStatusService
	midtrans      *MidtransService
	identity      *IdentityService
	sink          notify.Sink
	clock         Clock
	config        *config.BookingConfig
	logger        *logrus.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	db database.DB,
	bookingRepo *database.BookingRepository,
	ticketRepo *database.TicketRepository,
	vehicleRepo *database.VehicleRepository,
	paymentRepo *database.PaymentRepository,
	logRepo *database.BookingLogRepository,
	scheduleRepo *database.ScheduleRepository,
	routeRepo *database.RouteRepository,
	ferryRepo *database.FerryRepository,
	ledger *CapacityLedger,
	statusService *BookingStatusService,
	midtrans *MidtransService,
	identity *IdentityService,
	sink notify.Sink,
	clock Clock,
	cfg *config.BookingConfig,
	logger *logrus.Logger,
) *ReservationService {
	return &ReservationService{
		db:            db,
		bookingRepo:   bookingRepo,
		ticketRepo:    ticketRepo,
		vehicleRepo:   vehicleRepo,
		paymentRepo:   paymentRepo,
		logRepo:       logRepo,
		scheduleRepo:  scheduleRepo,
		routeRepo:     routeRepo,
		ferryRepo:     ferryRepo,
		ledger:        ledger,
		statusService: statusService,
		midtrans:      midtrans,
		identity:      identity,
		sink:          sink,
		clock:         clock,
		config:        cfg,
		logger:        logger,
	}
}

// BookingResult is returned from a successful reservation
type BookingResult struct {
	Booking      *models.Booking  `json:"booking"`
	Tickets      []models.Ticket  `json:"tickets"`
	Payment      *models.Payment  `json:"payment"`
	PaymentToken string           `json:"payment_token,omitempty"`
	RedirectURL  string           `json:"redirect_url,omitempty"`
	Vehicles     []models.Vehicle `json:"vehicles,omitempty"`
}

// CreateBooking reserves capacity and creates the full booking record set in
// a single transaction. Gateway bookings start pending with a payment
// deadline; counter and cash bookings are confirmed immediately.
func (s *ReservationService) CreateBooking(userID string, req *models.CreateBookingRequest) (*BookingResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	departureDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("invalid departure date: %w", err)
	}

	schedule, err := s.scheduleRepo.GetByID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule: %w", models.ErrNotFound)
	}
	if schedule.Status != models.ScheduleStatusActive {
		return nil, &models.ScheduleUnavailableError{Status: string(schedule.Status)}
	}
	if !schedule.OperatesOn(departureDate) {
		return nil, models.ErrScheduleNotOperating
	}

	vehicleCounts, err := models.CountVehicles(req.Vehicles)
	if err != nil {
		return nil, err
	}

	capacity, err := s.ferryRepo.GetCapacityByScheduleID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ferry capacity: %w", err)
	}
	if capacity == nil {
		return nil, fmt.Errorf("ferry for schedule %s: %w", req.ScheduleID, models.ErrNotFound)
	}

	route, err := s.routeRepo.GetByScheduleID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	totalAmount := route.PriceFor(len(req.Passengers), vehicleCounts)

	profile, err := s.identity.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	now := s.clock.Now()
	initialStatus := models.BookingStatusPending
	if req.PaymentMethod.IsPayNow() {
		initialStatus = models.BookingStatusConfirmed
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.ledger.Reserve(tx, req.ScheduleID, departureDate, *capacity, len(req.Passengers), vehicleCounts); err != nil {
		return nil, err
	}

	bookingCode, err := s.bookingRepo.GenerateBookingCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking code: %w", err)
	}

	booking := &models.Booking{
		ID:              uuid.New().String(),
		BookingCode:     bookingCode,
		UserID:          userID,
		ScheduleID:      req.ScheduleID,
		DepartureDate:   departureDate,
		PassengerCount:  len(req.Passengers),
		VehicleCount:    vehicleCounts.Total(),
		MotorcycleCount: vehicleCounts.Motorcycles,
		CarCount:        vehicleCounts.Cars,
		BusCount:        vehicleCounts.Buses,
		TruckCount:      vehicleCounts.Trucks,
		TotalAmount:     totalAmount,
		Status:          initialStatus,
	}
	if err := s.bookingRepo.CreateTx(tx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	tickets, err := s.createTickets(tx, booking.ID, req.Passengers)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.createVehicles(tx, booking.ID, req.Vehicles)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:        uuid.New().String(),
		BookingID: booking.ID,
		OrderID:   bookingCode,
		Amount:    totalAmount,
		Method:    req.PaymentMethod,
		Status:    models.PaymentStatusPending,
	}
	if req.PaymentMethod.IsPayNow() {
		payment.Status = models.PaymentStatusSuccess
		payment.PaidAt = &now
	} else {
		expiry := now.Add(s.config.PaymentExpiry)
		payment.ExpiryDate = &expiry
	}
	if err := s.paymentRepo.CreateTx(tx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	entry := &models.BookingLog{
		ID:             uuid.New().String(),
		BookingID:      booking.ID,
		PreviousStatus: models.BookingLogStatusNew,
		NewStatus:      initialStatus,
		ActorType:      models.ActorTypeUser,
		ActorID:        &userID,
	}
	if err := s.logRepo.CreateTx(tx, entry); err != nil {
		return nil, fmt.Errorf("failed to append booking log: %w", err)
	}

	result := &BookingResult{
		Booking:  booking,
		Tickets:  tickets,
		Payment:  payment,
		Vehicles: vehicles,
	}

	// The Snap transaction is created before commit so that a gateway
	// failure rolls the whole reservation back, capacity included.
	if req.PaymentMethod == models.PaymentMethodGateway {
		snapResp, err := s.midtrans.CreateTransaction(payment.OrderID, totalAmount, *profile, s.snapItems(route, booking), s.config.PaymentExpiry)
		if err != nil {
			return nil, err
		}
		result.PaymentToken = snapResp.Token
		result.RedirectURL = snapResp.RedirectURL
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.BookingCode,
		"schedule_id":  booking.ScheduleID,
		"date":         departureDate.Format("2006-01-02"),
		"passengers":   booking.PassengerCount,
		"vehicles":     booking.VehicleCount,
		"status":       booking.Status,
		"method":       req.PaymentMethod,
	}).Info("Booking created")

	if initialStatus == models.BookingStatusConfirmed {
		s.publishConfirmed(booking)
	}

	return result, nil
}

// CancelBooking cancels a booking on behalf of its owner or an operator
func (s *ReservationService) CancelBooking(bookingID, actorID string, actor models.ActorType, reason *string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking: %w", models.ErrNotFound)
	}
	if actor == models.ActorTypeUser && booking.UserID != actorID {
		return nil, fmt.Errorf("booking does not belong to user")
	}

	return s.statusService.Transition(bookingID, models.BookingStatusCancelled, actor, &actorID, reason)
}

// RescheduleBooking moves a confirmed booking to a new sailing. The old
// booking is terminated as rescheduled and its capacity released, the new
// sailing is reserved, and a linked replacement booking is created. All of
// it happens in one transaction so a full new sailing leaves the original
// untouched.
func (s *ReservationService) RescheduleBooking(bookingID, actorID string, actor models.ActorType, req *models.RescheduleBookingRequest) (*BookingResult, error) {
	newDate, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("invalid departure date: %w", err)
	}

	schedule, err := s.scheduleRepo.GetByID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule: %w", models.ErrNotFound)
	}
	if schedule.Status != models.ScheduleStatusActive {
		return nil, &models.ScheduleUnavailableError{Status: string(schedule.Status)}
	}
	if !schedule.OperatesOn(newDate) {
		return nil, models.ErrScheduleNotOperating
	}

	capacity, err := s.ferryRepo.GetCapacityByScheduleID(req.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ferry capacity: %w", err)
	}
	if capacity == nil {
		return nil, fmt.Errorf("ferry for schedule %s: %w", req.ScheduleID, models.ErrNotFound)
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking: %w", models.ErrNotFound)
	}
	if actor == models.ActorTypeUser && booking.UserID != actorID {
		return nil, fmt.Errorf("booking does not belong to user")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, &models.InvalidTransitionError{From: booking.Status, To: models.BookingStatusRescheduled}
	}

	oldTickets, err := s.ticketRepo.GetByBookingID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	oldVehicles, err := s.vehicleRepo.GetByBookingID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles: %w", err)
	}
	oldPayment, err := s.paymentRepo.GetLatestByBookingID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	// Terminate the original first: marks it rescheduled, cascades its
	// tickets and releases its capacity inside this transaction.
	notes := fmt.Sprintf("rescheduled to %s on %s", req.ScheduleID, req.DepartureDate)
	if err := s.statusService.TransitionTx(tx, booking, models.BookingStatusRescheduled, actor, &actorID, &notes); err != nil {
		return nil, err
	}

	vehicleCounts := booking.VehicleCounts()
	if _, err := s.ledger.Reserve(tx, req.ScheduleID, newDate, *capacity, booking.PassengerCount, vehicleCounts); err != nil {
		return nil, err
	}

	newCode, err := s.bookingRepo.GenerateBookingCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking code: %w", err)
	}

	newBooking := &models.Booking{
		ID:                uuid.New().String(),
		BookingCode:       newCode,
		UserID:            booking.UserID,
		ScheduleID:        req.ScheduleID,
		DepartureDate:     newDate,
		PassengerCount:    booking.PassengerCount,
		VehicleCount:      booking.VehicleCount,
		MotorcycleCount:   booking.MotorcycleCount,
		CarCount:          booking.CarCount,
		BusCount:          booking.BusCount,
		TruckCount:        booking.TruckCount,
		TotalAmount:       booking.TotalAmount,
		Status:            models.BookingStatusConfirmed,
		RescheduledFromID: &booking.ID,
	}
	if err := s.bookingRepo.CreateTx(tx, newBooking); err != nil {
		return nil, fmt.Errorf("failed to create replacement booking: %w", err)
	}

	passengers := make([]models.PassengerRequest, 0, len(oldTickets))
	for _, t := range oldTickets {
		passengers = append(passengers, models.PassengerRequest{Name: t.PassengerName, IDNumber: t.PassengerID})
	}
	newTickets, err := s.createTickets(tx, newBooking.ID, passengers)
	if err != nil {
		return nil, err
	}

	vehicleReqs := make([]models.VehicleRequest, 0, len(oldVehicles))
	for _, v := range oldVehicles {
		vehicleReqs = append(vehicleReqs, models.VehicleRequest{Type: v.Type, LicensePlate: v.LicensePlate, OwnerName: v.OwnerName})
	}
	newVehicles, err := s.createVehicles(tx, newBooking.ID, vehicleReqs)
	if err != nil {
		return nil, err
	}

	// The original payment covers the replacement; carry it forward so the
	// replacement booking has its own settled payment record.
	var newPayment *models.Payment
	if oldPayment != nil {
		newPayment = &models.Payment{
			ID:            uuid.New().String(),
			BookingID:     newBooking.ID,
			OrderID:       newCode,
			Amount:        oldPayment.Amount,
			Method:        oldPayment.Method,
			Channel:       oldPayment.Channel,
			Status:        oldPayment.Status,
			TransactionID: oldPayment.TransactionID,
			PaidAt:        oldPayment.PaidAt,
		}
		if err := s.paymentRepo.CreateTx(tx, newPayment); err != nil {
			return nil, fmt.Errorf("failed to carry payment forward: %w", err)
		}
	}

	if err := s.bookingRepo.SetRescheduleLinkTx(tx, booking.ID, newBooking.ID); err != nil {
		return nil, fmt.Errorf("failed to link bookings: %w", err)
	}

	entry := &models.BookingLog{
		ID:             uuid.New().String(),
		BookingID:      newBooking.ID,
		PreviousStatus: models.BookingLogStatusNew,
		NewStatus:      models.BookingStatusConfirmed,
		ActorType:      actor,
		ActorID:        &actorID,
		Notes:          &notes,
	}
	if err := s.logRepo.CreateTx(tx, entry); err != nil {
		return nil, fmt.Errorf("failed to append booking log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reschedule: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"old_booking": booking.BookingCode,
		"new_booking": newBooking.BookingCode,
		"schedule_id": req.ScheduleID,
		"date":        req.DepartureDate,
	}).Info("Booking rescheduled")

	s.publishConfirmed(newBooking)

	return &BookingResult{
		Booking:  newBooking,
		Tickets:  newTickets,
		Payment:  newPayment,
		Vehicles: newVehicles,
	}, nil
}

// GetBooking returns a booking with its tickets, vehicles and latest payment
func (s *ReservationService) GetBooking(bookingID string) (*BookingResult, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking: %w", models.ErrNotFound)
	}
	return s.loadBookingResult(booking)
}

// GetBookingByCode resolves a booking by its printed booking code, the
// reference counter staff work from.
func (s *ReservationService) GetBookingByCode(code string) (*BookingResult, error) {
	booking, err := s.bookingRepo.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", code, models.ErrNotFound)
	}
	return s.loadBookingResult(booking)
}

func (s *ReservationService) loadBookingResult(booking *models.Booking) (*BookingResult, error) {
	tickets, err := s.ticketRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	vehicles, err := s.vehicleRepo.GetByBookingID(booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles: %w", err)
	}
	payment, err := s.paymentRepo.GetLatestByBookingID(booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &BookingResult{
		Booking:  booking,
		Tickets:  tickets,
		Payment:  payment,
		Vehicles: vehicles,
	}, nil
}

// ListUserBookings returns all bookings belonging to a user
func (s *ReservationService) ListUserBookings(userID string) ([]models.Booking, error) {
	return s.bookingRepo.GetByUserID(userID)
}

func (s *ReservationService) createTickets(tx *sqlx.Tx, bookingID string, passengers []models.PassengerRequest) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, len(passengers))
	for _, p := range passengers {
		code, err := s.ticketRepo.GenerateTicketCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ticket code: %w", err)
		}
		ticket := models.Ticket{
			ID:             uuid.New().String(),
			BookingID:      bookingID,
			TicketCode:     code,
			PassengerName:  p.Name,
			PassengerID:    p.IDNumber,
			Status:         models.TicketStatusActive,
			BoardingStatus: models.BoardingStatusNotBoarded,
		}
		if err := s.ticketRepo.CreateTx(tx, &ticket); err != nil {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}

func (s *ReservationService) createVehicles(tx *sqlx.Tx, bookingID string, reqs []models.VehicleRequest) ([]models.Vehicle, error) {
	vehicles := make([]models.Vehicle, 0, len(reqs))
	for _, vr := range reqs {
		vehicle := models.Vehicle{
			ID:           uuid.New().String(),
			BookingID:    bookingID,
			Type:         vr.Type,
			LicensePlate: vr.LicensePlate,
			OwnerName:    vr.OwnerName,
		}
		if err := s.vehicleRepo.CreateTx(tx, &vehicle); err != nil {
			return nil, fmt.Errorf("failed to create vehicle: %w", err)
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

func (s *ReservationService) snapItems(route *models.Route, booking *models.Booking) []SnapItem {
	items := []SnapItem{{
		ID:       "passenger",
		Name:     fmt.Sprintf("Passenger fare %s - %s", route.Origin, route.Destination),
		Price:    route.BasePrice,
		Quantity: booking.PassengerCount,
	}}
	add := func(id, name string, price float64, qty int) {
		if qty > 0 {
			items = append(items, SnapItem{ID: id, Name: name, Price: price, Quantity: qty})
		}
	}
	add("motorcycle", "Motorcycle fare", route.MotorcyclePrice, booking.MotorcycleCount)
	add("car", "Car fare", route.CarPrice, booking.CarCount)
	add("bus", "Bus fare", route.BusPrice, booking.BusCount)
	add("truck", "Truck fare", route.TruckPrice, booking.TruckCount)
	return items
}

func (s *ReservationService) publishConfirmed(booking *models.Booking) {
	err := s.sink.Publish(notify.Event{
		Type:     notify.EventBookingConfirmed,
		Title:    "Booking Confirmed",
		Message:  fmt.Sprintf("Your booking %s for %s is confirmed.", booking.BookingCode, booking.DepartureDate.Format("2 Jan 2006")),
		Priority: notify.PriorityHigh,
		UserID:   booking.UserID,
		Data: map[string]interface{}{
			"booking_id":   booking.ID,
			"booking_code": booking.BookingCode,
		},
	})
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish confirmation event")
	}
}
