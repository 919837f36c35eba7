package booking

import "github.com/driveaway/driveaway/internal/models"

// CanUpdateStatus is the authorization policy for booking status
// transitions, kept free of HTTP plumbing so the truth table is testable on
// its own:
//
//   - customers may only cancel, and only bookings they own
//   - vendors may set any status on bookings they own
//   - admins may set any status on any booking
//
// owned reports whether the actor is the booking's customer (for customer
// actors) or its vendor (for vendor actors).
func CanUpdateStatus(role models.Role, newStatus models.BookingStatus, owned bool) error {
	switch role {
	case models.RoleAdmin:
		return nil
	case models.RoleVendor:
		if !owned {
			return ErrNotAuthorized
		}
		return nil
	case models.RoleCustomer:
		if newStatus != models.BookingCancelled {
			return ErrNotAuthorized
		}
		if !owned {
			return ErrNotAuthorized
		}
		return nil
	default:
		return ErrNotAuthorized
	}
}
