// Command co2dash is the CO2 monitoring backend plus its terminal tools.
package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/co2dash/internal/client"
	"github.com/luki/co2dash/internal/config"
	"github.com/luki/co2dash/internal/monitor"
	"github.com/luki/co2dash/internal/viewer"
)

var commands = []struct {
	name string
	desc string
}{
	{"serve", "REST backend, MQTT ingest and retention job"},
	{"monitor", "Live terminal dashboard (default)"},
	{"view", "Browse the CSV reading archive"},
	{"simulate", "Post synthetic gateway readings"},
}

func main() {
	cmd := "monitor"
	var args []string
	if len(os.Args) > 1 {
		cmd = strings.ToLower(os.Args[1])
		args = os.Args[2:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "monitor":
		err = runMonitor()
	case "view", "history":
		err = runView(args)
	case "simulate", "sim":
		err = runSimulate(args)
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Usage: co2dash <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, c := range commands {
		fmt.Printf("  %-9s %s\n", c.name, c.desc)
	}
	fmt.Println()
	fmt.Println("Settings come from .env and CO2_* environment variables.")
}

func runMonitor() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	p := tea.NewProgram(
		monitor.New(client.New(cfg.Client.APIURL), monitor.DefaultInterval),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}

func runView(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir := cfg.Archive.Dir
	if len(args) > 0 {
		dir = args[0]
	}
	return viewer.Run(dir)
}
