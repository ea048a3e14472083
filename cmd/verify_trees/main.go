package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/commentree-backend/internal/config"
	repos "github.com/yungbote/commentree-backend/internal/data/repos/comments"
	"github.com/yungbote/commentree-backend/internal/platform/database"
	"github.com/yungbote/commentree-backend/internal/platform/logger"
	"github.com/yungbote/commentree-backend/internal/services"
)

// Audits every stored comment tree against the structural invariants and
// prints any violations. Read-only; exits 1 when issues are found so it can
// run from cron.
func main() {
	var concurrency int
	flag.IntVar(&concurrency, "concurrency", 4, "trees audited in parallel")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load("", log)
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	postgresService, err := database.NewPostgresService(database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	db := postgresService.DB()

	integrity := services.NewIntegrityService(
		db,
		log,
		repos.NewTreeRootRepo(db, log),
		repos.NewCommentNodeRepo(db, log),
		repos.NewCommentVersionRepo(db, log),
	)

	issues, err := integrity.VerifyAll(context.Background(), concurrency)
	if err != nil {
		fmt.Printf("audit failed: %v\n", err)
		os.Exit(1)
	}
	for _, issue := range issues {
		fmt.Println(issue.String())
	}
	if len(issues) > 0 {
		fmt.Printf("%d issue(s) found\n", len(issues))
		os.Exit(1)
	}
	fmt.Println("all trees consistent")
}
