package v1

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the v1 API on r. authenticated guards the profile screens.
func RegisterRoutes(r gin.IRouter, accounts *AccountHandler, screens *ScreenHandler, authenticated gin.HandlerFunc) {
	api := r.Group("/api/v1")
	{
		api.POST("/accounts", accounts.SignUp)
		api.POST("/accounts/password/reset", accounts.ResetPassword)

		login := api.Group("/screens/login")
		login.POST("", screens.OpenLogin)
		login.PATCH("/:id", screens.UpdateLogin)
		login.DELETE("/:id", screens.CloseLogin)
		login.POST("/:id/sign-in", screens.SignIn)
		login.POST("/:id/forgot-password", screens.ForgotPassword)
		login.GET("/:id/federated", screens.BeginFederated)
		login.POST("/:id/federated", screens.CompleteFederated)

		profile := api.Group("/screens/profile", authenticated)
		profile.POST("", screens.OpenProfile)
		profile.GET("/:id", screens.GetProfile)
		profile.PATCH("/:id", screens.UpdateProfile)
		profile.DELETE("/:id", screens.CloseProfile)
		profile.POST("/:id/save", screens.SaveProfile)
	}
}
