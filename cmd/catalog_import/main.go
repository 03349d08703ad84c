package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/trainingportal-backend/internal/app"
	"github.com/yungbote/trainingportal-backend/internal/data/db"
	learningrepo "github.com/yungbote/trainingportal-backend/internal/data/repos/learning"
	"github.com/yungbote/trainingportal-backend/internal/modules/learning/catalog"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

func main() {
	var (
		path    string
		dryRun  bool
		migrate bool
		timeout time.Duration
	)
	flag.StringVar(&path, "file", "", "catalog YAML file to import")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and print counts without writing")
	flag.BoolVar(&migrate, "migrate", true, "run schema migrations before importing")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "overall import timeout")
	flag.Parse()

	if path == "" {
		fmt.Println("usage: catalog_import -file catalog.yaml [-dry-run]")
		os.Exit(2)
	}

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	f, err := os.Open(path)
	if err != nil {
		log.Error("Open catalog failed", "file", path, "error", err)
		os.Exit(1)
	}
	file, err := catalog.Parse(f)
	_ = f.Close()
	if err != nil {
		log.Error("Invalid catalog", "file", path, "error", err)
		os.Exit(1)
	}

	rows := file.Rows()
	if dryRun {
		lessons, questions := 0, 0
		for _, c := range rows.Courses {
			for _, m := range c.Modules {
				lessons += len(m.Lessons)
			}
		}
		for _, a := range rows.Assessments {
			questions += len(a.Questions)
		}
		fmt.Printf("catalog ok: courses=%d lessons=%d assessments=%d questions=%d\n",
			len(rows.Courses), lessons, len(rows.Assessments), questions)
		return
	}

	app.LoadDotEnv(log)
	dbService, err := db.Open(log, db.ConfigFromEnv())
	if err != nil {
		log.Error("Open database failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = dbService.Close() }()
	if migrate {
		if err := db.AutoMigrateAll(dbService.DB()); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	importer := catalog.NewImporter(
		log,
		db.NewTxRunner(dbService.DB()),
		learningrepo.NewCourseRepo(dbService.DB(), log),
		learningrepo.NewAssessmentRepo(dbService.DB(), log),
	)
	sum, err := importer.Import(ctx, file)
	if err != nil {
		log.Error("Import failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("imported: courses=%d lessons=%d assessments=%d questions=%d\n",
		sum.Courses, sum.Lessons, sum.Assessments, sum.Questions)
}
