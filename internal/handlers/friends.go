package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"familyphotos/api/internal/middleware"
	"familyphotos/api/internal/models"
)

type friendResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func newFriendResponse(friend models.Friend) friendResponse {
	return friendResponse{ID: friend.ID, Username: friend.Username, Email: friend.Email}
}

func (h HandlerSet) ListFriends(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	friends, err := h.friendService.ListFriends(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]friendResponse, 0, len(friends))
	for _, friend := range friends {
		resp = append(resp, newFriendResponse(friend))
	}
	c.JSON(http.StatusOK, gin.H{"friends": resp})
}

type addFriendRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h HandlerSet) AddFriend(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req addFriendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email required")
		return
	}

	friend, err := h.friendService.AddFriend(c.Request.Context(), user.ID, req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"friend": newFriendResponse(friend)})
}
