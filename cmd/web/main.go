// @title           CV Builder API
// @version         1.0
// @description     API конструктора резюме (документация Swagger).
// @contact.name    CV Builder
// @contact.email   support@cvbuilder.local
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:5000
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	_ "cvbuilder_backend/docs"
	"cvbuilder_backend/internal/app"
)

func main() {
	app.Run()
}
