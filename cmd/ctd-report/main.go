// Command ctd-report applies the RBRargo3 thermal-mass correction to CTD
// profiles, stores the outcomes and serves them over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/ctd.report/internal/config"
	"github.com/banshee-data/ctd.report/internal/db"
	"github.com/banshee-data/ctd.report/internal/fsutil"
	"github.com/banshee-data/ctd.report/internal/version"
)

// DefaultDBFile is the database used when -db is not given.
const DefaultDBFile = "ctd_profiles.db"

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case "correct":
		err = handleCorrect(ctx, args)
	case "serve":
		err = handleServe(ctx, args)
	case "submit":
		err = handleSubmit(args)
	case "import-coefficients":
		err = handleImportCoefficients(ctx, args)
	case "migrate":
		fs := flag.NewFlagSet("migrate", flag.ExitOnError)
		dbPath := fs.String("db", DefaultDBFile, "Database file")
		fs.Parse(args)
		db.RunMigrateCommand(fs.Args(), *dbPath)
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

func printUsage() {
	fmt.Println(`ctd-report - thermal-mass correction for RBRargo3 CTD profiles

Usage: ctd-report <command> [options]

Commands:
  correct               Correct profiles from a JSON file
  serve                 Run the HTTP API
  submit                Send profiles to a running server for correction
  import-coefficients   Load compressibility coefficients from CSV into the database
  migrate               Manage database schema (see 'ctd-report migrate help')
  version               Show version
  help                  Show this help message

Examples:
  ctd-report correct -in profiles.json -out outcomes.json -charts ./charts -png
  ctd-report correct -in profile.json -coefficients coeffs.csv
  ctd-report serve -listen :8080 -db ctd_profiles.db
  ctd-report submit -server http://localhost:8080 -in profiles.json -store
  ctd-report import-coefficients -db ctd_profiles.db coeffs.csv`)
}

// loadConfig returns the tuning config at path, or the defaults when path
// is empty.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

var osFS fsutil.FileSystem = fsutil.OSFileSystem{}
