package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/jobs"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/routes"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/storage"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	db, err := storage.Connect(context.Background())
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	utils.InitRedis()

	engine := negotiation.NewEngine(storage.NewMongo(db))

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	routes.RegisterRoutes(e, db, engine)

	reconciler := jobs.NewReconciler(db)
	cronRunner := reconciler.Start()
	defer cronRunner.Stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
