// Package main runs the fundraising operator CLI.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	fundraisingcmd "github.com/openraise/fundraising/internal/cmd/fundraising"
	"github.com/openraise/fundraising/internal/platform/config"
)

func main() {
	log.SetPrefix("[FUNDRAISING] ")

	cfg, args, err := fundraisingcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fundraisingcmd.Run(ctx, cfg, args, os.Stdout); err != nil {
		stop()
		config.Exitf("Error: %v", err)
	}
}
