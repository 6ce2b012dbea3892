package main

import (
	"github.com/corray333/backend-labs/tms/internal/app"
	"github.com/corray333/backend-labs/tms/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
