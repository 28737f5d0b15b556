package handlers

import (
	"net/http"
	"strconv"

	"user_accounts/internal/models"

	"github.com/gin-gonic/gin"
)

// UpdateUserRequest carries the fields to change; omitted fields stay as they are.
// Supplying password rotates the stored hash.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" example:"alice"`
	Email    *string `json:"email,omitempty" example:"alice@example.com"`
	Password *string `json:"password,omitempty" example:"efgh"`
}

func parseUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID})
		return 0, false
	}
	return id, true
}

// ownedUserID parses :id and rejects callers acting on another account.
func (h *Handler) ownedUserID(c *gin.Context) (int64, bool) {
	id, ok := parseUserID(c)
	if !ok {
		return 0, false
	}
	if caller, _ := currentUserID(c); caller != id {
		if h.log != nil {
			h.log.Infow("user_access_denied", "caller_id", caller, "target_id", id, "method", c.Request.Method)
		}
		c.JSON(http.StatusForbidden, gin.H{"error": errForbidden})
		return 0, false
	}
	return id, true
}

// @Summary   Current user
// @Tags      users
// @Produce   json
// @Success   200  {object}  models.User
// @Failure   401  {object}  map[string]string
// @Failure   404  {object}  map[string]string
// @Router    /api/v1/users/me [get]
// @Security  BearerAuth
func (h *Handler) getMe(c *gin.Context) {
	id, _ := currentUserID(c)
	h.writeUser(c, id)
}

// @Summary      Get user
// @Description  Only the account owner may read it.
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "user id"
// @Success      200  {object}  models.User
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/users/{id} [get]
// @Security     BearerAuth
func (h *Handler) getUser(c *gin.Context) {
	id, ok := h.ownedUserID(c)
	if !ok {
		return
	}
	h.writeUser(c, id)
}

func (h *Handler) writeUser(c *gin.Context, id int64) {
	u, err := h.services.Get(c.Request.Context(), id)
	if err != nil {
		h.writeServiceError(c, "user_get_failed", err, "user_id", id)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      Update user
// @Description  Only the account owner may update it. A supplied password is re-hashed before storage.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "user id"
// @Param        body  body      UpdateUserRequest  true  "fields to change"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/users/{id} [patch]
// @Security     BearerAuth
func (h *Handler) updateUser(c *gin.Context) {
	id, ok := h.ownedUserID(c)
	if !ok {
		return
	}

	var input UpdateUserRequest
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	upd := models.UserUpdate{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	}
	if err := h.services.Update(c.Request.Context(), id, upd); err != nil {
		h.writeServiceError(c, "user_update_failed", err, "user_id", id)
		return
	}

	if h.log != nil {
		h.log.Infow("user_updated", "user_id", id, "password_changed", upd.PasswordChanged())
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
