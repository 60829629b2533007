package middleware

import "github.com/gin-gonic/gin"

// customerIDKey is the key used to store the authenticated customer's ID.
// Using a custom type prevents collisions.
const customerIDKey = contextKey("customerID")

// GetCustomerIDFromContext retrieves the authenticated customer ID from the
// Gin context. It returns the customer ID and a boolean indicating if it was
// found.
func GetCustomerIDFromContext(c *gin.Context) (string, bool) {
	customerIDVal, exists := c.Get(string(customerIDKey))
	if !exists {
		// check in the request context as well
		reqVal := c.Request.Context().Value(customerIDKey)
		if reqVal != nil {
			if id, ok := reqVal.(string); ok {
				return id, true
			}
		}
		return "", false
	}

	customerID, ok := customerIDVal.(string)
	if !ok {
		return "", false
	}

	return customerID, true
}
