package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicdesk-be/errs"
)

// respondError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a persistence-layer failure and
// surfaces as 500 without leaking driver detail.
func respondError(c *gin.Context, err error) {
	var validation *errs.ValidationError
	var notFound *errs.NotFoundError
	var authorization *errs.AuthorizationError
	var transition *errs.InvalidTransitionError
	var conflict *errs.ConflictError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "field": validation.Field})
	case errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{"error": transition.Error()})
	case errors.As(err, &authorization):
		c.JSON(http.StatusForbidden, gin.H{"error": authorization.Error(), "field": authorization.Field})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}
