package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/ctd.report/internal/compressibility"
	"github.com/banshee-data/ctd.report/internal/db"
	"github.com/banshee-data/ctd.report/internal/fsutil"
)

func handleImportCoefficients(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-coefficients", flag.ExitOnError)
	dbPath := fs.String("db", DefaultDBFile, "Database file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one CSV file")
	}
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	_, err = importCoefficients(ctx, osFS, database, os.Stdout, fs.Arg(0))
	return err
}

func importCoefficients(ctx context.Context, fsys fsutil.FileSystem, database *db.DB, stdout io.Writer, name string) (int, error) {
	data, err := fsys.ReadFile(name)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}
	table, err := compressibility.LoadCSV(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	n, err := database.ImportCoefficients(ctx, table)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(stdout, "imported %d platforms into %s\n", n, database.Path())
	return n, nil
}
