package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// orderPlacer is the slice of the workflow engine the front-ends consume.
type orderPlacer interface {
	PlaceOrder(dishQuery string) error
}

type orderRequest struct {
	Dish string `json:"dish"`
}

// newRouter builds the HTTP front-end: one endpoint that translates a
// request into a PlaceOrder call and renders the outcome. Serialization
// against the browser session happens inside the workflow, so concurrent
// requests simply queue.
func newRouter(workflow orderPlacer, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/order", func(c *gin.Context) {
		var req orderRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Dish == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a dish name."})
			return
		}

		log.Info("received order request", zap.String("dish", req.Dish))

		if err := workflow.PlaceOrder(req.Dish); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Order placed for %s.", req.Dish)})
	})

	return router
}
