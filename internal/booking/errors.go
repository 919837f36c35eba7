package booking

import "errors"

var (
	// ErrVehicleNotFound is returned when the referenced vehicle does not exist.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrBookingNotFound is returned when the referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrVehicleUnavailable is returned when the vehicle is already held by
	// an active rental.
	ErrVehicleUnavailable = errors.New("vehicle is not available")
	// ErrVehicleAlreadyRented is returned when approving a booking whose
	// vehicle has already been claimed.
	ErrVehicleAlreadyRented = errors.New("vehicle is already rented and cannot be approved")
	// ErrInvalidDates is returned when the booking span does not yield a
	// positive day count.
	ErrInvalidDates = errors.New("end date must be after start date")
	// ErrInvalidCost is returned when the derived total cost is not a
	// finite number.
	ErrInvalidCost = errors.New("total cost is not a finite number")
	// ErrInvalidStatus is returned for an unknown booking status value.
	ErrInvalidStatus = errors.New("invalid booking status")
	// ErrNotAuthorized is returned when the actor's role or ownership does
	// not permit the operation.
	ErrNotAuthorized = errors.New("not authorized to update this booking")
	// ErrMissingCoordinates is returned when a location update lacks either
	// coordinate.
	ErrMissingCoordinates = errors.New("please provide latitude and longitude")
)
