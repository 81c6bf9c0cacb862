// gc-inspect shows what the sync would make of saved Garmin Connect data:
// a search response page (-listing) or a downloaded activity file (-fit).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fitglue/garminconnect/pkg/domain/activity"
	"github.com/fitglue/garminconnect/pkg/domain/fit_parser"
	"github.com/fitglue/garminconnect/pkg/integrations/garminconnect"
)

func main() {
	listingPath := flag.String("listing", "", "Path to a saved activity search response (JSON)")
	fitPath := flag.String("fit", "", "Path to a downloaded .fit file")
	typesPath := flag.String("types", "", "Path to a saved activity_types response (JSON); optional")
	tz := flag.String("tz", "", "IANA zone to present FIT timestamps in")
	flag.Parse()

	if (*listingPath == "") == (*fitPath == "") {
		fmt.Fprintln(os.Stderr, "Usage: gc-inspect -listing <page.json> [-types <types.json>] | -fit <file.fit> [-tz <zone>]")
		os.Exit(2)
	}

	var (
		out any
		err error
	)
	if *listingPath != "" {
		out, err = inspectListing(*listingPath, *typesPath)
	} else {
		out, err = inspectFIT(*fitPath, *tz)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gc-inspect: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "gc-inspect: %v\n", err)
		os.Exit(1)
	}
}

type listingReport struct {
	Activities []*activity.Activity `json:"activities"`
	Excluded   []string             `json:"excluded,omitempty"`
}

func inspectListing(path, typesPath string) (*listingReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parents := map[string]string{}
	if typesPath != "" {
		raw, err := os.ReadFile(typesPath)
		if err != nil {
			return nil, err
		}
		if parents, err = garminconnect.ParseHierarchy(raw); err != nil {
			return nil, err
		}
	}

	acts, exclusions, err := garminconnect.ParseListingPage(data, garminconnect.NewTaxonomy(parents))
	if err != nil {
		return nil, err
	}
	report := &listingReport{Activities: acts}
	for _, ex := range exclusions {
		report.Excluded = append(report.Excluded, ex.Error())
	}
	return report, nil
}

func inspectFIT(path, tz string) (*activity.Activity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	act := activity.New()
	if tz != "" {
		loc, err := activity.ParseZone(tz)
		if err != nil {
			return nil, err
		}
		act.TZ = loc
	}
	if err := fit_parser.New().ParseDetail(data, act); err != nil {
		return nil, err
	}
	return act, nil
}
