package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"lamarkesa/internal/config"
	"lamarkesa/pkg/auth"
	"lamarkesa/pkg/domain"
	"lamarkesa/pkg/store"
)

type account struct {
	email    string
	password string
	role     domain.UserRole
}

func main() {
	configPath := flag.String("config", config.ConfigPath, "config file path")
	adminEmail := flag.String("admin-email", "admin@lamarkesa.local", "admin account email")
	adminPassword := flag.String("admin-password", "", "admin account password")
	devsEmail := flag.String("devs-email", "devs@lamarkesa.local", "devs account email")
	devsPassword := flag.String("devs-password", "", "devs account password")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	accounts := []account{
		{email: *adminEmail, password: *adminPassword, role: domain.RoleAdmin},
		{email: *devsEmail, password: *devsPassword, role: domain.RoleDevs},
	}
	if err := seedUsers(dataStore, accounts); err != nil {
		log.Fatalf("failed to seed users: %v", err)
	}
	for _, acc := range accounts {
		fmt.Printf("provisioned %s (%s)\n", strings.ToLower(strings.TrimSpace(acc.email)), acc.role)
	}
}

// seedUsers provisions one account per role. An existing account keeps its
// ID and receives the new password hash and role, so reruns rotate
// credentials instead of duplicating users.
func seedUsers(dataStore store.Store, accounts []account) error {
	now := time.Now().UTC()
	for _, acc := range accounts {
		email := strings.ToLower(strings.TrimSpace(acc.email))
		if email == "" {
			return fmt.Errorf("email required for role %s", acc.role)
		}
		if err := auth.ValidatePassword(acc.password); err != nil {
			return fmt.Errorf("password for %s: %w", email, err)
		}
		hash, err := auth.HashPassword(acc.password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", email, err)
		}
		user, exists, err := dataStore.GetUserByEmail(email)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", email, err)
		}
		if !exists {
			user = domain.User{
				ID:        uuid.NewString(),
				Email:     email,
				CreatedAt: now,
			}
		}
		user.PasswordHash = hash
		user.Role = acc.role
		user.Status = domain.StatusActive
		user.UpdatedAt = now
		if err := dataStore.SaveUser(user); err != nil {
			return fmt.Errorf("save %s: %w", email, err)
		}
	}
	return nil
}
