// Command migrate copies resumes from the legacy local store into the document store
// on behalf of one account.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/resumehub/internal/config"
	"github.com/example/resumehub/internal/core"
	"github.com/example/resumehub/internal/db"
	"github.com/example/resumehub/internal/db/memory"
	"github.com/example/resumehub/internal/legacy"
	"github.com/example/resumehub/internal/session"
)

func main() {
	dbPath := flag.String("db", "", "path to the legacy SQLite store (defaults to LEGACY_DB_PATH)")
	accountID := flag.String("account", "", "uid of the account that receives the resumes")
	email := flag.String("email", "", "account email, used to pick the matching legacy user (defaults to the stored profile)")
	loadFile := flag.String("load", "", "optional JSON array of legacy resumes written into the store before importing")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	if *accountID == "" {
		fmt.Fprintln(os.Stderr, "--account is required")
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *dbPath == "" {
		*dbPath = appConfig.LegacyDBPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := legacy.Open(ctx, *dbPath)
	if err != nil {
		logger.Fatal("Failed to open legacy store", zap.String("path", *dbPath), zap.Error(err))
	}
	defer store.Close()

	if *loadFile != "" {
		raw, err := os.ReadFile(*loadFile)
		if err != nil {
			logger.Fatal("Failed to read load file", zap.Error(err))
		}
		if err := store.ReplaceTable(ctx, legacy.TableResumes, json.RawMessage(raw)); err != nil {
			logger.Fatal("Failed to load legacy resumes", zap.Error(err))
		}
		logger.Info("Legacy resumes loaded", zap.String("file", *loadFile))
	}

	var (
		resumeRepo db.ResumeRepository
		userRepo   db.UserRepository
		auditRepo  db.AuditRepository
	)
	if appConfig.StoreBackend == config.BackendMemory {
		logger.Warn("STORE_BACKEND=memory: the import runs against a throwaway store")
		resumeRepo = memory.NewResumeStore()
		userRepo = memory.NewUserStore()
		auditRepo = memory.NewAuditStore()
	} else {
		clients, err := db.InitFirebase(ctx, appConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Admin SDK", zap.Error(err))
		}
		defer clients.Close()
		resumeRepo = db.NewFirestoreResumeRepository(clients.Firestore, logger)
		userRepo = db.NewFirestoreUserRepository(clients.Firestore, logger)
		auditRepo = db.NewFirestoreAuditRepository(clients.Firestore)
	}

	holder := session.NewHolder()
	updates, unsubscribe := holder.Subscribe()
	defer unsubscribe()
	go func() {
		for p := range updates {
			if p != nil {
				logger.Debug("Session principal changed", zap.String("userId", p.UserID))
			}
		}
	}()

	principal := session.Principal{UserID: *accountID, Email: *email}
	if user, err := userRepo.GetByID(ctx, *accountID); err == nil {
		principal = session.FromUser(user)
		if *email != "" {
			principal.Email = *email
		}
	} else {
		logger.Warn("Account profile not found, importing with the given flags only",
			zap.String("userId", *accountID), zap.Error(err))
	}
	holder.Set(principal)
	defer holder.Clear()

	validator := core.NewResumeValidator(appConfig.MaxEmbeddedImageBytes)
	migrationService := core.NewMigrationService(resumeRepo, validator, core.NewAuditService(auditRepo), logger)

	result, err := migrationService.ImportLocalResumes(ctx, store, *holder.Current())
	if err != nil {
		logger.Fatal("Import failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
