package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/ctd.report/internal/compressibility"
	"github.com/banshee-data/ctd.report/internal/db"
	"github.com/banshee-data/ctd.report/internal/fsutil"
	"github.com/banshee-data/ctd.report/internal/pipeline"
	"github.com/banshee-data/ctd.report/internal/profile"
	"github.com/banshee-data/ctd.report/internal/report"
	"github.com/banshee-data/ctd.report/internal/security"
)

type correctOptions struct {
	Input        string
	ConfigPath   string
	DBPath       string
	Store        bool
	Out          string
	ChartDir     string
	PNG          bool
	Coefficients string
}

func handleCorrect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("correct", flag.ExitOnError)
	var o correctOptions
	fs.StringVar(&o.Input, "in", "", "Profile JSON file: one profile, an array, or {\"profiles\": [...]} (required)")
	fs.StringVar(&o.ConfigPath, "config", "", "Tuning config JSON (defaults built in)")
	fs.StringVar(&o.DBPath, "db", "", "Database for coefficients and -store")
	fs.BoolVar(&o.Store, "store", false, "Save outcomes to the database")
	fs.StringVar(&o.Out, "out", "", "Write outcomes JSON here instead of a summary on stdout")
	fs.StringVar(&o.ChartDir, "charts", "", "Directory for per-profile HTML charts")
	fs.BoolVar(&o.PNG, "png", false, "Also write PNG plots into -charts")
	fs.StringVar(&o.Coefficients, "coefficients", "", "Compressibility coefficients CSV (overrides -db table)")
	fs.Parse(args)

	if o.Input == "" {
		fs.Usage()
		return errors.New("-in is required")
	}
	_, err := runCorrect(ctx, osFS, os.Stdout, o)
	return err
}

func runCorrect(ctx context.Context, fsys fsutil.FileSystem, stdout io.Writer, o correctOptions) ([]*pipeline.Outcome, error) {
	if o.Store && o.DBPath == "" {
		return nil, errors.New("-store requires -db")
	}
	if o.PNG && o.ChartDir == "" {
		return nil, errors.New("-png requires -charts")
	}

	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	profiles, err := readProfiles(fsys, o.Input)
	if err != nil {
		return nil, err
	}

	var database *db.DB
	if o.DBPath != "" {
		database, err = db.NewDB(o.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		defer database.Close()
	}

	var table compressibility.Table
	switch {
	case o.Coefficients != "":
		data, err := fsys.ReadFile(o.Coefficients)
		if err != nil {
			return nil, fmt.Errorf("failed to read coefficients: %w", err)
		}
		t, err := compressibility.LoadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Coefficients, err)
		}
		table = t
	case database != nil:
		table = database
	}

	outs, err := pipeline.NewProcessor(cfg, table).ProcessAll(ctx, profiles)
	if err != nil {
		return nil, err
	}

	if o.Store {
		for _, out := range outs {
			if err := database.SaveProfile(ctx, out); err != nil {
				return nil, fmt.Errorf("failed to store profile %s: %w", out.Profile.ID, err)
			}
		}
	}

	if o.Out != "" {
		if err := fsutil.WriteJSON(fsys, o.Out, outs); err != nil {
			return nil, err
		}
	} else {
		printSummary(stdout, outs)
	}

	if o.ChartDir != "" {
		for _, out := range outs {
			if err := writeCharts(fsys, o.ChartDir, out, o.PNG); err != nil {
				return nil, err
			}
		}
	}
	return outs, nil
}

// readProfiles accepts a single profile object, an array of profiles, or an
// object with a "profiles" array.
func readProfiles(fsys fsutil.FileSystem, name string) ([]*profile.Profile, error) {
	var raw json.RawMessage
	if err := fsutil.ReadJSON(fsys, name, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	var profiles []*profile.Profile
	switch {
	case len(raw) > 0 && raw[0] == '[':
		if err := json.Unmarshal(raw, &profiles); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
	default:
		var wrapped struct {
			Profiles []*profile.Profile `json:"profiles"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if wrapped.Profiles != nil {
			profiles = wrapped.Profiles
			break
		}
		var p profile.Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		profiles = []*profile.Profile{&p}
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%s: no profiles", name)
	}
	return profiles, nil
}

func printSummary(w io.Writer, outs []*pipeline.Outcome) {
	for _, o := range outs {
		fmt.Fprintf(w, "%s\tplatform=%s\tcycle=%d\tsamples=%d\tinferred=%t\t%s\n",
			o.Profile.ID, o.Profile.Platform, o.Profile.Cycle, o.Profile.Len(),
			o.InternalTemperatureInferred, o.Duration)
		for _, n := range o.Notes {
			fmt.Fprintf(w, "\tnote: %s\n", n)
		}
	}
}

func writeCharts(fsys fsutil.FileSystem, dir string, o *pipeline.Outcome, png bool) error {
	name, err := security.ProfileFile(dir, o.Profile.ID, ".html")
	if err != nil {
		return err
	}
	if err := writeWith(fsys, name, func(w io.Writer) error { return report.WriteHTML(w, o) }); err != nil {
		return err
	}
	if !png {
		return nil
	}
	name, err = security.ProfileFile(dir, o.Profile.ID, ".png")
	if err != nil {
		return err
	}
	return writeWith(fsys, name, func(w io.Writer) error { return report.RenderPNG(w, o) })
}

func writeWith(fsys fsutil.FileSystem, name string, render func(io.Writer) error) error {
	f, err := fsys.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return f.Close()
}
