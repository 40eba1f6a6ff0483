// Command diag inspects a schedule file from the command line: validate it,
// dump interpolated positions for an instant, list active flights over the
// day, or print the great-circle course between two airports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/flight"
	"github.com/cebartling/flightloop/internal/geo"
	"github.com/cebartling/flightloop/internal/schedule"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("diag", flag.ExitOnError)
	return &ffcli.Command{
		ShortUsage: "diag [flags] <subcommand>",
		FlagSet:    fs,
		Options:    []ff.Option{ff.WithEnvVarPrefix("FLIGHTLOOP")},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			cmdValidate(),
			cmdPositions(),
			cmdActive(),
			cmdBearing(),
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func loadFlights(path string) ([]schedule.Flight, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return schedule.Parse(f, schedule.DetectFormat(path), quietLogger())
}

func cmdValidate() *ffcli.Command {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	file := fs.String("file", "", "schedule file (json or yaml)")
	return &ffcli.Command{
		Name:       "validate",
		ShortUsage: "diag validate -file schedule.json",
		ShortHelp:  "parse a schedule file and report what survives validation",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *file == "" {
				return flag.ErrHelp
			}
			flights, err := loadFlights(*file)
			if err != nil {
				return err
			}

			overnight := 0
			for _, f := range flights {
				if f.Overnight() {
					overnight++
				}
			}
			fmt.Printf("%d valid flights (%d overnight)\n", len(flights), overnight)
			return nil
		},
	}
}

func cmdPositions() *ffcli.Command {
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	file := fs.String("file", "", "schedule file (json or yaml)")
	at := fs.Float64("t", 720, "simulated time in minutes from midnight")
	airport := fs.String("airport", "", "filter by airport code")
	return &ffcli.Command{
		Name:       "positions",
		ShortUsage: "diag positions -file schedule.json -t 510 [-airport LAX]",
		ShortHelp:  "print interpolated positions at a simulated instant",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *file == "" {
				return flag.ErrHelp
			}
			flights, err := loadFlights(*file)
			if err != nil {
				return err
			}

			t := clock.Normalize(*at)
			positions := flight.ActivePositions(flights, t, *airport)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"t":       t,
				"count":   len(positions),
				"flights": positions,
			})
		},
	}
}

func cmdActive() *ffcli.Command {
	fs := flag.NewFlagSet("active", flag.ExitOnError)
	file := fs.String("file", "", "schedule file (json or yaml)")
	step := fs.Float64("step", 60, "sampling step in simulated minutes")
	airport := fs.String("airport", "", "filter by airport code")
	return &ffcli.Command{
		Name:       "active",
		ShortUsage: "diag active -file schedule.json [-step 60]",
		ShortHelp:  "print active-flight counts sampled across the day",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if *file == "" {
				return flag.ErrHelp
			}
			if *step <= 0 {
				return fmt.Errorf("step must be positive, got %v", *step)
			}
			flights, err := loadFlights(*file)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "time\tactive")
			for t := 0.0; t < schedule.MinutesPerDay; t += *step {
				active := flight.ActivePositions(flights, t, *airport)
				fmt.Fprintf(w, "%02d:%02d\t%d\n", int(t)/60, int(t)%60, len(active))
			}
			return w.Flush()
		},
	}
}

func cmdBearing() *ffcli.Command {
	fs := flag.NewFlagSet("bearing", flag.ExitOnError)
	fromLon := fs.Float64("from-lon", 0, "origin longitude")
	fromLat := fs.Float64("from-lat", 0, "origin latitude")
	toLon := fs.Float64("to-lon", 0, "destination longitude")
	toLat := fs.Float64("to-lat", 0, "destination latitude")
	return &ffcli.Command{
		Name:       "bearing",
		ShortUsage: "diag bearing -from-lon -118.4 -from-lat 33.9 -to-lon -73.8 -to-lat 40.6",
		ShortHelp:  "print initial bearing and distance between two points",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if !geo.ValidCoordinates(*fromLon, *fromLat) || !geo.ValidCoordinates(*toLon, *toLat) {
				return fmt.Errorf("coordinates out of range")
			}
			bearing := geo.InitialBearing(*fromLat, *fromLon, *toLat, *toLon)
			distance := geo.DistanceNM(*fromLat, *fromLon, *toLat, *toLon)
			fmt.Printf("bearing %.1f° distance %.1f NM\n", bearing, distance)
			return nil
		},
	}
}
