package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"civicdesk-be/config"
	"civicdesk-be/middlewares"
	"civicdesk-be/models"
)

// ListTeamMembers returns the active team members an actor may assign
// issues to. Admins may ask for any department via the query parameter;
// department heads always get their own department.
func ListTeamMembers(c *gin.Context) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var department string
	switch actor.Role {
	case models.RoleAdmin:
		department = c.Query("department")
	case models.RoleDepartmentHead:
		department = actor.Department
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to list team members"})
		return
	}

	filter := bson.M{"role": models.RoleTeamMember, "active": true}
	if department != "" {
		filter["department"] = department
	}

	userCollection := config.GetCollection("users")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := userCollection.Find(ctx, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve team members"})
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode team members"})
		return
	}

	members := make([]gin.H, 0, len(users))
	for _, user := range users {
		members = append(members, gin.H{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"department": user.Department,
		})
	}

	c.JSON(http.StatusOK, members)
}
