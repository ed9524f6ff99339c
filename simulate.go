package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/luki/co2dash/internal/client"
	"github.com/luki/co2dash/internal/config"
	"github.com/luki/co2dash/internal/simulate"
)

func runSimulate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.Usage = printSimulateHelp
	url := fs.String("url", cfg.Client.APIURL, "backend base URL")
	devices := fs.String("devices", "SIM-0001,SIM-0002", "comma-separated hardware ids")
	building := fs.String("building", "", "create this building and register the devices in it")
	backfill := fs.Duration("backfill", 0, "post a history spanning this long, e.g. 168h")
	step := fs.Duration("step", 15*time.Minute, "spacing of backfilled readings")
	live := fs.Duration("live", 0, "keep posting one reading per device at this interval")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hw := splitList(*devices)
	if len(hw) == 0 {
		return fmt.Errorf("no devices given")
	}
	if *backfill == 0 && *live == 0 {
		printSimulateHelp()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*url)
	if err := c.Health(ctx); err != nil {
		return fmt.Errorf("backend at %s not reachable: %w", *url, err)
	}

	if *building != "" {
		b, err := c.CreateBuilding(ctx, *building)
		if err != nil {
			return fmt.Errorf("create building: %w", err)
		}
		for _, id := range hw {
			if _, err := c.AddDeviceToBuilding(ctx, b.ID, id); err != nil {
				return fmt.Errorf("register %s: %w", id, err)
			}
		}
		fmt.Printf("Registered %d devices in %q\n", len(hw), b.Name)
	}

	g := simulate.NewGenerator(*seed)

	if *backfill > 0 {
		fmt.Printf("Backfilling %s of readings every %s\n", *backfill, *step)
		n, err := simulate.Backfill(ctx, c, hw, g, time.Now(), *backfill, *step, os.Stdout)
		fmt.Printf("Posted %d readings\n", n)
		if err != nil {
			return err
		}
	}

	if *live > 0 {
		fmt.Printf("Posting every %s, Ctrl+C to stop\n", *live)
		return simulate.Live(ctx, c, hw, g, *live, os.Stdout)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printSimulateHelp() {
	fmt.Println("Usage: co2dash simulate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -url URL          backend base URL (default CO2_API_URL)")
	fmt.Println("  -devices a,b      hardware ids to simulate")
	fmt.Println("  -building NAME    create a building and register the devices")
	fmt.Println("  -backfill 168h    post a history ending now")
	fmt.Println("  -step 15m         spacing of backfilled readings")
	fmt.Println("  -live 30s         keep posting at this interval")
	fmt.Println("  -seed N           random seed")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  co2dash simulate -building \"Main Office\" -backfill 168h")
	fmt.Println("  co2dash simulate -devices AA:BB:CC:01 -live 10s")
}
