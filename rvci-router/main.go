package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.bug.st/serial"

	"github.com/TZeys/RVCI/rvci-router/audio"
	"github.com/TZeys/RVCI/rvci-router/config"
	"github.com/TZeys/RVCI/rvci-router/database"
	"github.com/TZeys/RVCI/rvci-router/router"
	"github.com/TZeys/RVCI/rvci-router/tui"
)

func main() {
	// --- Argument Parsing ---
	configPath := flag.String("config", "", "Path to mapping.json (default: per-user config dir)")
	headless := flag.Bool("headless", false, "Run without the TUI (log-only)")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := serial.GetPortsList()
		if err != nil {
			log.Fatalf("FATAL: Could not enumerate serial ports: %v", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("FATAL: Could not resolve config path: %v", err)
		}
	}

	if *writeConfig {
		cfg := config.Default()
		if err := config.Save(path, &cfg); err != nil {
			log.Fatalf("FATAL: Could not write default config to %s: %v", path, err)
		}
		fmt.Printf("Wrote default configuration to %s\n", path)
		return
	}

	// --- Logging Setup ---
	routerLogFile, err := os.OpenFile("rvci_router.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open router log file: %v", err)
	}
	defer routerLogFile.Close()
	routerLogger := log.New(routerLogFile, "", log.LstdFlags|log.Lmicroseconds)

	dbLogFile, err := os.OpenFile("rvci_database.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open database log file: %v", err)
	}
	defer dbLogFile.Close()
	dbLogger := log.New(dbLogFile, "DB: ", log.LstdFlags|log.Lmicroseconds)

	// --- Audio Subsystem ---
	// Constructed here, initialized and released inside the router
	// goroutine: COM setup must happen on the thread that uses it.
	sys := audio.NewSubsystem()

	// --- Coordinated Shutdown Setup ---
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// --- Channel and State Initialization ---
	dbEventChan := make(chan database.Event, 100)
	state := router.NewRouterState(dbEventChan)

	// --- Start Goroutines ---
	wg.Add(2)
	go router.Run(ctx, &wg, state, routerLogger, path, sys, &audio.PSResolver{})
	go database.EventWriter(ctx, &wg, dbEventChan, dbLogger)

	// --- Graceful Shutdown Handling ---
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	if *headless {
		routerLogger.Println("Running headless.")
		<-shutdownChan
		log.Println("Shutdown signal received. Cleaning up.")
		cancel()
	} else {
		tuiModel := tui.NewModel(state, routerLogger)
		p := tea.NewProgram(tuiModel, tea.WithAltScreen())

		// This goroutine waits for the TUI to exit.
		go func() {
			if _, err := p.Run(); err != nil {
				log.Fatalf("Alas, there's been an error: %v", err)
			}
			cancel()
		}()

		select {
		case <-shutdownChan:
			log.Println("Shutdown signal received. Cleaning up.")
			p.Quit()
		case <-ctx.Done():
			log.Println("TUI exited. Shutting down other processes.")
		}
	}

	log.Println("Waiting for goroutines to finish...")
	wg.Wait()
	log.Println("All goroutines finished. Exiting.")
	close(dbEventChan)
}
