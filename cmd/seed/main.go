package main

import (
	"encoding/json"
	"log"

	"golang.org/x/crypto/bcrypt"

	"medintake-be/internal/config"
	"medintake-be/internal/model"
	"medintake-be/pkg/database"
	"medintake-be/pkg/intake"
)

func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding Admin Account...")

	if cfg.Auth.AdminPassword == "" {
		log.Fatal("Error: ADMIN_PASSWORD is not set")
	}

	var existing model.User
	if err := db.Where("email = ?", cfg.Auth.AdminEmail).First(&existing).Error; err == nil {
		log.Printf("Admin '%s' already exists, skipping...", cfg.Auth.AdminEmail)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Error hashing admin password: %v", err)
		}
		admin := model.User{
			Email:        cfg.Auth.AdminEmail,
			PasswordHash: string(hash),
			Name:         "Clinic Admin",
			Role:         "admin",
		}
		if err := db.Create(&admin).Error; err != nil {
			log.Fatalf("Error creating admin: %v", err)
		}
		log.Printf("Created admin: %s", cfg.Auth.AdminEmail)
	}

	log.Println("Seeding Sample Questionnaire...")

	questions := []intake.Question{
		{Id: "chief_complaint", Text: "What brings you in today?", Required: true, Type: intake.QuestionFreeText},
		{Id: "symptom_onset", Text: "When did the symptoms start?", Required: true, Type: intake.QuestionFreeText},
		{Id: "pain_scale", Text: "On a scale of 1 to 10, how severe is the pain?", Required: true, Type: intake.QuestionScale},
		{Id: "medications", Text: "Are you currently taking any medications?", Required: true, Type: intake.QuestionFreeText},
		{Id: "allergies", Text: "Do you have any known allergies?", Required: true, Type: intake.QuestionFreeText},
		{Id: "prior_conditions", Text: "Have you been diagnosed with any chronic conditions?", Required: false, Type: intake.QuestionFreeText},
	}

	var existingQ model.Questionnaire
	if err := db.Where("name = ?", "General Intake").First(&existingQ).Error; err == nil {
		log.Printf("Questionnaire 'General Intake' already exists (%s), skipping...", existingQ.Id)
		return
	}

	raw, err := json.Marshal(questions)
	if err != nil {
		log.Fatalf("Error marshaling questions: %v", err)
	}

	q := model.Questionnaire{
		Name:        "General Intake",
		Description: "Standard pre-visit intake interview",
		Questions:   raw,
	}
	if err := db.Create(&q).Error; err != nil {
		log.Fatalf("Error creating questionnaire: %v", err)
	}

	log.Printf("Created questionnaire: %s (%d questions)", q.Id, len(questions))
	log.Println("Seeding completed!")
}
