package handlers

import (
	"github.com/gin-gonic/gin"

	"vetcare-server/internal/apperr"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/utils"
)

// requirePetOwner returns the caller's pet owner profile or writes a 403.
func requirePetOwner(c *gin.Context) (*models.PetOwner, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.RespondError(c, apperr.ErrUnauthenticated)
		return nil, false
	}
	owner := principal.PetOwner()
	if owner == nil {
		utils.RespondError(c, apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "Only pet owners can perform this action"))
		return nil, false
	}
	return owner, true
}

// requireVeterinarian returns the caller's veterinarian record or writes a 403.
func requireVeterinarian(c *gin.Context) (*models.Veterinarian, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.RespondError(c, apperr.ErrUnauthenticated)
		return nil, false
	}
	vet := principal.Veterinarian()
	if vet == nil {
		utils.RespondError(c, apperr.New(apperr.KindForbidden, apperr.CodeUnauthorized, "Only veterinarians can perform this action"))
		return nil, false
	}
	return vet, true
}
