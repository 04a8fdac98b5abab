// seed provisions a development tenant with a domain and an admin account.
// Idempotent: skips inserts when the dev tenant already exists.
package main

import (
	"context"
	"log"
	"os"

	accountdomain "tenant-gateway/internal/account/domain"
	accountrepo "tenant-gateway/internal/account/repository"
	"tenant-gateway/internal/config"
	"tenant-gateway/internal/db"
	"tenant-gateway/internal/security"
	tenantdomain "tenant-gateway/internal/tenant/domain"
	tenantrepo "tenant-gateway/internal/tenant/repository"
)

const (
	devTenantID    = "tenant_dev"
	devTenantName  = "Dev Tenant"
	devDomain      = "localhost"
	devAdminID     = "account_dev_admin"
	devAdminEmail  = "admin@example.com"
	devAdminMobile = "5550100"
	devPassword    = "password123"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	tenants := tenantrepo.NewPostgresRepository(conn)
	accounts := accountrepo.NewPostgresRepository(conn)

	existing, err := tenants.GetByPublicID(ctx, devTenantID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devTenantID)
		os.Exit(0)
	}

	tenant := &tenantdomain.Tenant{
		PublicID: devTenantID,
		Name:     devTenantName,
		Status:   tenantdomain.TenantStatusActive,
		Settings: map[string]any{"environment": "development"},
	}
	if err := tenants.Create(ctx, tenant, []string{devDomain, "127.0.0.1"}); err != nil {
		log.Fatalf("create tenant: %v", err)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	admin := &accountdomain.Account{
		PublicID:     devAdminID,
		TenantID:     devTenantID,
		FirstName:    "Dev",
		LastName:     "Admin",
		Email:        devAdminEmail,
		Mobile:       devAdminMobile,
		Role:         accountdomain.RoleAdmin,
		PasswordHash: passwordHash,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		log.Fatalf("create admin account: %v", err)
	}

	log.Printf("Seeded tenant %s (domains: %s, 127.0.0.1) with admin %s / %s",
		devTenantID, devDomain, devAdminEmail, devPassword)
}
