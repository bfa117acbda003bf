package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/banshee-data/ctd.report/internal/fsutil"
	"github.com/banshee-data/ctd.report/internal/httputil"
	"github.com/banshee-data/ctd.report/internal/pipeline"
	"github.com/banshee-data/ctd.report/internal/profile"
)

type submitOptions struct {
	Server string
	Input  string
	Out    string
	Store  bool
}

type batchRequest struct {
	Profiles []*profile.Profile `json:"profiles"`
}

type batchResponse struct {
	Outcomes []*pipeline.Outcome `json:"outcomes"`
}

func handleSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	var o submitOptions
	fs.StringVar(&o.Server, "server", "http://localhost:8080", "Base URL of a ctd-report server")
	fs.StringVar(&o.Input, "in", "", "Profile JSON file (required)")
	fs.StringVar(&o.Out, "out", "", "Write outcomes JSON here instead of a summary on stdout")
	fs.BoolVar(&o.Store, "store", false, "Ask the server to store the outcomes")
	timeout := fs.Duration("timeout", time.Minute, "Request timeout")
	fs.Parse(args)

	if o.Input == "" {
		fs.Usage()
		return errors.New("-in is required")
	}
	client := httputil.NewStandardClient(&http.Client{Timeout: *timeout})
	_, err := runSubmit(osFS, client, os.Stdout, o)
	return err
}

// runSubmit posts the profiles in o.Input to the batch endpoint.
func runSubmit(fsys fsutil.FileSystem, c httputil.HTTPClient, stdout io.Writer, o submitOptions) ([]*pipeline.Outcome, error) {
	profiles, err := readProfiles(fsys, o.Input)
	if err != nil {
		return nil, err
	}

	path := "/api/profiles/batch"
	if o.Store {
		path += "?store=true"
	}
	var resp batchResponse
	if err := httputil.NewJSONClient(c, o.Server).PostJSON(path, batchRequest{Profiles: profiles}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Outcomes) != len(profiles) {
		return nil, fmt.Errorf("server returned %d outcomes for %d profiles", len(resp.Outcomes), len(profiles))
	}

	if o.Out != "" {
		return resp.Outcomes, fsutil.WriteJSON(fsys, o.Out, resp.Outcomes)
	}
	printSummary(stdout, resp.Outcomes)
	return resp.Outcomes, nil
}
