package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/config"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

type output struct {
	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func main() {
	// JWT_SECRET and SESSION_TTL seed the flag defaults when set.
	sessionCfg := &config.SessionConfig{SessionTTL: 12 * time.Hour}
	if loaded, err := config.LoadSession(); err == nil {
		sessionCfg = loaded
	}

	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		jwtSecret   = flag.String("jwt-secret", sessionCfg.JWTSecret, "Session token secret")
		userID      = flag.String("user-id", "", "Profile id to mint a token for (generated with -bootstrap when empty)")
		orgID       = flag.String("org", "", "Organisation id, required with -bootstrap")
		email       = flag.String("email", "admin@backoffice.local", "Email for a bootstrapped admin profile")
		fullName    = flag.String("name", "Bootstrap Admin", "Full name for a bootstrapped admin profile")
		bootstrap   = flag.Bool("bootstrap", false, "Create an admin profile when the user id has none")
		ttl         = flag.Duration("ttl", sessionCfg.SessionTTL, "Token lifetime (defaults to SESSION_TTL)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" || *jwtSecret == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL and JWT_SECRET are required")
		os.Exit(1)
	}
	if *userID == "" && !*bootstrap {
		fmt.Fprintln(os.Stderr, "-user-id is required unless -bootstrap is set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	profile, err := loadProfile(ctx, repo, *userID)
	if errors.Is(err, repository.ErrNotFound) && *bootstrap {
		profile, err = bootstrapAdmin(ctx, repo, *userID, *orgID, *email, *fullName)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if !profile.IsActive {
		fmt.Fprintf(os.Stderr, "profile %s is inactive\n", profile.ID)
		os.Exit(1)
	}

	session := &model.Session{
		UserID:         profile.ID,
		OrganisationID: profile.OrganisationID,
		Email:          profile.Email,
		Role:           profile.Role,
	}
	token, err := auth.NewTokens(*jwtSecret).Sign(session, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sign token:", err)
		os.Exit(1)
	}

	out := output{
		UserID:         profile.ID,
		OrganisationID: profile.OrganisationID,
		Email:          profile.Email,
		Role:           string(profile.Role),
		Token:          token,
		ExpiresAt:      time.Now().UTC().Add(*ttl),
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Token)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func loadProfile(ctx context.Context, repo *repository.Repository, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return nil, repository.ErrNotFound
	}
	profile, err := repo.GetProfileForSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return profile, nil
}

// bootstrapAdmin creates the first admin profile of an organisation so that
// provisioning can be called at all.
func bootstrapAdmin(ctx context.Context, repo *repository.Repository, userID, orgID, email, fullName string) (*model.UserProfile, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, errors.New("-org is required with -bootstrap")
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	profile := &model.UserProfile{
		ID:             userID,
		OrganisationID: orgID,
		FullName:       fullName,
		Email:          email,
		Role:           model.RoleAdmin,
		EmploymentType: model.EmploymentSalary,
		IsActive:       true,
	}
	if err := repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create admin profile: %w", err)
	}
	return profile, nil
}
