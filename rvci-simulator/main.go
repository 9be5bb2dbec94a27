package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TZeys/RVCI/rvci-simulator/simulator"
)

func main() {
	logFile, err := os.OpenFile("simulator.log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags|log.Lmicroseconds)

	mode := flag.String("mode", "tcp", "Emission mode: 'tcp' or 'serial'")
	addr := flag.String("addr", "127.0.0.1:5050", "TCP listen address")
	serialPort := flag.String("port", "COM5", "Serial port to emit on (e.g., COM5)")
	baud := flag.Int("baud", 9600, "Serial baud rate")
	channels := flag.Int("channels", 4, "Number of mixer channels")
	valueMax := flag.Float64("value-max", 1024, "Raw value ceiling")
	intervalMS := flag.Int("interval", 20, "Milliseconds between frames")
	scenarioPath := flag.String("scenario", "", "Path to a scenario script file to run.")
	flag.Parse()

	sim := simulator.NewSimulator(*channels, *valueMax, logger)

	if *scenarioPath != "" {
		go sim.RunScenario(*scenarioPath)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logger.Println("Ctrl+C detected, stopping simulator...")
		sim.Stop()
		os.Exit(0)
	}()

	interval := time.Duration(*intervalMS) * time.Millisecond
	switch *mode {
	case "tcp":
		sim.RunTCP(*addr, interval)
	case "serial":
		sim.RunSerial(*serialPort, *baud, interval)
	default:
		log.Fatalf("Invalid mode: %s. Choose 'tcp' or 'serial'", *mode)
	}

	logger.Println("Simulator exiting.")
}
