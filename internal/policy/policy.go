// Package policy decides whether an authenticated actor may read or write
// a resource.  Every decision is a pure function of the actor and the ids
// stored on the resource, re-evaluated on each request.
package policy

import "github.com/iliyamo/coworking-space-reservation/internal/model"

// Actor is the identity carried by the session token.
type Actor struct {
	ID   uint64
	Role string
}

// IsAdmin reports whether the actor has unrestricted access.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Is reports whether the actor is the user with the given id.
func (a Actor) Is(userID uint64) bool { return a.ID != 0 && a.ID == userID }

// CanAccessReservation allows admins, the owner of the booked space and the
// user who made the reservation.
func CanAccessReservation(a Actor, reservationUserID, spaceOwnerID uint64) bool {
	return a.IsAdmin() || a.Is(spaceOwnerID) || a.Is(reservationUserID)
}

// CanSeeAllReservationsOfSpace allows admins and the space owner to list
// every reservation of a space; other callers only see their own.
func CanSeeAllReservationsOfSpace(a Actor, spaceOwnerID uint64) bool {
	return a.IsAdmin() || a.Is(spaceOwnerID)
}

// CanDecideReservation allows admins and the space owner to approve or
// reject a reservation.
func CanDecideReservation(a Actor, spaceOwnerID uint64) bool {
	return a.IsAdmin() || a.Is(spaceOwnerID)
}

// CanSetApprovalStatus checks a requested status change.  Deciders may set
// any status; the booking user may only cancel or keep it pending.
func CanSetApprovalStatus(a Actor, status string, spaceOwnerID uint64) bool {
	if CanDecideReservation(a, spaceOwnerID) {
		return true
	}
	return status == model.StatusPending || status == model.StatusCanceled
}

// CanCreateSpace requires an authenticated actor.
func CanCreateSpace(a Actor) bool { return a.ID != 0 }

// CanMutateSpace allows admins and the owner of the space.
func CanMutateSpace(a Actor, ownerID uint64) bool {
	return a.IsAdmin() || a.Is(ownerID)
}

// BanPrivilege labels the actor's relation to a ban issue: the target
// first, then admin, otherwise a plain user.
func BanPrivilege(a Actor, targetID uint64) string {
	switch {
	case a.Is(targetID):
		return model.PrivilegeTarget
	case a.IsAdmin():
		return model.PrivilegeAdmin
	default:
		return model.PrivilegeUser
	}
}

// CanViewBanIssue allows the target and admins.
func CanViewBanIssue(a Actor, targetID uint64) bool {
	return BanPrivilege(a, targetID) != model.PrivilegeUser
}

// CanAppeal allows only the target of the ban issue.
func CanAppeal(a Actor, targetID uint64) bool { return a.Is(targetID) }

// CanComment allows the target and admins to discuss an appeal.
func CanComment(a Actor, targetID uint64) bool { return CanViewBanIssue(a, targetID) }

// CanViewUserBans allows a user to see their own ban history and admins to
// see anyone's.
func CanViewUserBans(a Actor, userID uint64) bool {
	return a.IsAdmin() || a.Is(userID)
}

