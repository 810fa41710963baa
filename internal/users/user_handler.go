package users

import (
	"net/http"
	"strconv"

	"aanganwadi/internal/core/response"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
)

type UsersHandler struct {
	Repository UserRepository
}

func NewHandler(r UserRepository) *UsersHandler {
	return &UsersHandler{
		Repository: r,
	}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users/me", security.Authorize(), h.GetMe)
	router.GET("/users/:id", security.Authorize(), h.GetUser)
	router.GET("/users", security.Authorize(roles.Admin), h.GetUserList)
}

func (h *UsersHandler) GetMe(c *gin.Context) {
	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}

	user, err := h.Repository.GetUser(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, "Unable to find user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid user ID", err)
		return
	}

	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return
	}
	if actor.UserID != userID && actor.Role != roles.Admin {
		response.Error(c, "Forbidden", custom_error.Forbidden("you are not allowed to access this resource"))
		return
	}

	user, err := h.Repository.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, "Unable to find user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	role := roles.Role(c.Query("role"))
	if role != "" && !role.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid role filter"})
		return
	}

	users, err := h.Repository.GetUsers(c.Request.Context(), role)
	if err != nil {
		response.Error(c, "Could not obtain list of users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}
