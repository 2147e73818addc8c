package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			for _, table := range []string{"partners", "memberships", "companies", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		seedUser := func(email, name string) int64 {
			var id int64
			if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err == nil {
				fmt.Println("user already exists:", email)
				return id
			}
			if err := db.Exec("INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, true, now(), now())", email, name, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", email, err)
			}
			if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&id); err != nil {
				log.Fatalf("failed to lookup user %s: %v", email, err)
			}
			fmt.Println("Seeded user:", email)
			return id
		}

		adminID := seedUser("ana@mail.com", "Ana Admin")
		financialID := seedUser("felipe@mail.com", "Felipe Financeiro")
		brokerID := seedUser("bruno@mail.com", "Bruno Corretor")

		regNumber := "12345678000190"
		var companyID string
		if err := db.Raw("SELECT id FROM companies WHERE registration_number = ?", regNumber).Row().Scan(&companyID); err != nil {
			companyID = uuid.NewString()
			if err := db.Exec(`INSERT INTO companies
				(id, registration_number, legal_name, trade_name, city, state, is_active, created_at, updated_at, updated_by)
				VALUES (?, ?, ?, ?, ?, ?, true, now(), now(), ?)`,
				companyID, regNumber, "Imobiliaria Exemplo LTDA", "Exemplo Imoveis", "Sao Paulo", "SP", adminID).Error; err != nil {
				log.Fatalf("failed to insert company: %v", err)
			}
			fmt.Println("Seeded company:", regNumber)
		} else {
			fmt.Println("company already exists:", regNumber)
		}

		seedMembership := func(userID int64, role string) {
			var exists int
			if err := db.Raw("SELECT 1 FROM memberships WHERE user_id = ? AND company_id = ?", userID, companyID).Row().Scan(&exists); err == nil {
				return
			}
			if err := db.Exec(`INSERT INTO memberships (id, user_id, company_id, role, is_active, date_joined)
				VALUES (?, ?, ?, ?, true, now())`, uuid.NewString(), userID, companyID, role).Error; err != nil {
				log.Fatalf("failed to insert membership for user %d: %v", userID, err)
			}
			fmt.Printf("Seeded %s membership for user %d\n", role, userID)
		}

		seedMembership(adminID, "admin")
		seedMembership(financialID, "financial")
		seedMembership(brokerID, "broker")

		var partnerExists int
		if err := db.Raw("SELECT 1 FROM partners WHERE company_id = ?", companyID).Row().Scan(&partnerExists); err != nil {
			if err := db.Exec(`INSERT INTO partners (id, company_id, name, tax_id, email)
				VALUES (?, ?, ?, ?, ?)`, uuid.NewString(), companyID, "Ana Admin", "12345678901", "ana@mail.com").Error; err != nil {
				log.Fatalf("failed to insert partner: %v", err)
			}
			fmt.Println("Seeded partner for company:", regNumber)
		}

		fmt.Println("Seeding complete. All users share the password:", password)
	},
}
