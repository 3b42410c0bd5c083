// Package identity resolves an authenticated user to its role and role
// specific profile.
package identity

import (
	"vetcare-server/internal/models"
)

// RoleProfile is the closed set of role specific profiles. Only the types in
// this package implement it.
type RoleProfile interface {
	role() models.Role
}

// PetOwnerProfile is the role profile of a pet owner.
type PetOwnerProfile struct{ PetOwner *models.PetOwner }

// VeterinarianProfile is the role profile of an activated veterinarian.
type VeterinarianProfile struct{ Veterinarian *models.Veterinarian }

// AdminProfile is the role profile of an administrator.
type AdminProfile struct{}

func (PetOwnerProfile) role() models.Role     { return models.RolePetOwner }
func (VeterinarianProfile) role() models.Role { return models.RoleVeterinarian }
func (AdminProfile) role() models.Role        { return models.RoleAdmin }

// Principal is an authenticated user with its resolved role profile.
type Principal struct {
	UserID   string
	Email    string
	Profile  models.Profile
	RoleData RoleProfile
}

// Role returns the role of the principal.
func (p *Principal) Role() models.Role {
	return p.RoleData.role()
}

// PetOwner returns the pet owner profile, or nil for other roles.
func (p *Principal) PetOwner() *models.PetOwner {
	if o, ok := p.RoleData.(PetOwnerProfile); ok {
		return o.PetOwner
	}
	return nil
}

// Veterinarian returns the veterinarian record, or nil for other roles.
func (p *Principal) Veterinarian() *models.Veterinarian {
	if v, ok := p.RoleData.(VeterinarianProfile); ok {
		return v.Veterinarian
	}
	return nil
}

// IsAdmin reports whether the principal is an administrator.
func (p *Principal) IsAdmin() bool {
	_, ok := p.RoleData.(AdminProfile)
	return ok
}

// Match dispatches on the role profile. Every role must be handled, so adding
// a role breaks every call site at compile time.
func Match[T any](p *Principal, owner func(*models.PetOwner) T, vet func(*models.Veterinarian) T, admin func() T) T {
	switch r := p.RoleData.(type) {
	case PetOwnerProfile:
		return owner(r.PetOwner)
	case VeterinarianProfile:
		return vet(r.Veterinarian)
	case AdminProfile:
		return admin()
	}
	panic("identity: unknown role profile")
}
