package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/fruitful/internal/admin"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := admin.NewApp(cfg, os.Stdin, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
	}

	err = app.Run(ctx, os.Args[1:])
	_ = app.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}

}
