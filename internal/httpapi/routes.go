package httpapi

import "github.com/gin-gonic/gin"

// Register mounts the v1 API under r.
func (h Handlers) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	{
		calls := v1.Group("/calls")
		calls.POST("", h.StartCall)
		calls.POST("/batch", h.StartBatch)
		calls.GET("/:id", h.GetCall)
		calls.GET("/provider/:provider_call_id/status", h.PollCallStatus)
		calls.POST("/provider/:provider_call_id/end", h.EndCall)

		v1.GET("/phone-numbers", h.ListPhoneNumbers)

		st := v1.Group("/steps")
		st.GET("", h.ListSteps)
		st.GET("/graph", h.StepGraph)
		st.GET("/:state", h.GetStep)
		st.POST("/validate", h.ValidateTransition)
	}
}
