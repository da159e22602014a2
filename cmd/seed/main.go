package main

import (
	"log"

	"hozur_backend/internals/configs"
	database "hozur_backend/internals/databases"
	"hozur_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()
	database.ConnectDB()

	if err := database.Migrate(database.DB); err != nil {
		log.Fatalf("❌ migrate: %v", err)
	}
	seeds.RunAllSeeds(database.DB)
	log.Println("✅ Seeding finished")
}
