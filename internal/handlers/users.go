package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/utils"
)

// UserHandler handles the user directory: staff look up patients whose
// analysis history they review, admins manage accounts.
type UserHandler struct {
	Store models.UserDirectory
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store models.UserDirectory) *UserHandler {
	return &UserHandler{Store: store}
}

// GetUsers handles fetching all users (admin). An optional ?role= filters
// the list.
func (h *UserHandler) GetUsers(c *gin.Context) {
	role := models.Role(c.Query("role"))
	switch role {
	case "", models.RolePatient, models.RoleDoctor, models.RoleHospital, models.RoleAdmin:
	default:
		utils.BadRequest(c, "Unknown role filter")
		return
	}
	h.listUsers(c, role, "Users fetched successfully")
}

// GetPatients handles fetching all patients for clinical staff.
func (h *UserHandler) GetPatients(c *gin.Context) {
	h.listUsers(c, models.RolePatient, "Patients fetched successfully")
}

// GetDoctors handles fetching all doctors. Any authenticated user may call it.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	h.listUsers(c, models.RoleDoctor, "Doctors fetched successfully")
}

func (h *UserHandler) listUsers(c *gin.Context, role models.Role, message string) {
	users, err := h.Store.ListUsers(c.Request.Context(), role)
	if err != nil {
		log.Printf("users: list %q: %v", role, err)
		utils.InternalServerError(c, "Failed to fetch users")
		return
	}

	sanitized := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitized[i] = u.Sanitize()
	}
	utils.Success(c, message, sanitized)
}

// GetUserByID handles fetching a single user by ID (admin).
func (h *UserHandler) GetUserByID(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}
	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRoleRequest represents the request body for changing a role.
type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=patient doctor hospital admin"`
}

// UpdateUserRole handles changing a user's role (admin). Admins cannot
// demote themselves.
func (h *UserHandler) UpdateUserRole(c *gin.Context) {
	var req UpdateUserRoleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	callerID, _ := middleware.GetUserIDFromContext(c)
	if user.ID == callerID && models.Role(req.Role) != models.RoleAdmin {
		utils.BadRequest(c, "You cannot remove your own admin role")
		return
	}

	user.Role = models.Role(req.Role)
	if err := h.Store.SaveUser(c.Request.Context(), user); err != nil {
		log.Printf("users: update role for %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to update user")
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeleteUser handles deleting a user by ID (admin). The user's refresh
// tokens and analysis history go with it.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	user, ok := h.loadUser(c)
	if !ok {
		return
	}

	callerID, _ := middleware.GetUserIDFromContext(c)
	if user.ID == callerID {
		utils.BadRequest(c, "You cannot delete your own account")
		return
	}

	if err := h.Store.DeleteUser(c.Request.Context(), user.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "User not found")
			return
		}
		log.Printf("users: delete %s: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to delete user")
		return
	}

	utils.Success(c, "User deleted successfully", nil)
}

func (h *UserHandler) loadUser(c *gin.Context) (*models.User, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return nil, false
	}

	user, err := h.Store.FindUserByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			log.Printf("users: get %s: %v", id, err)
			utils.InternalServerError(c, "Failed to fetch user")
		}
		return nil, false
	}
	return user, true
}
