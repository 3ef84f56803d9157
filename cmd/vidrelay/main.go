package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jgivc/vidrelay/internal/app"
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	flag.Parse()

	a := app.New(*cfgFileName)
	go a.Start()

	// Operator signals: SIGUSR1 sweeps expired limiter windows, SIGUSR2
	// prints spool statistics.
	ops := make(chan os.Signal, 1)
	signal.Notify(ops, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for sig := range ops {
			if sig == syscall.SIGUSR1 {
				go a.Sweep()

				continue
			}

			go a.Stats()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	sig := <-quit
	fmt.Printf("Received %s. Shutting down...\n", sig)

	a.Stop()
}
