package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/trebuchet-org/govlock/internal/cli"
	"github.com/trebuchet-org/govlock/internal/cli/render"
	"github.com/trebuchet-org/govlock/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		msg := err.Error()
		if kind := domain.KindOf(err); kind != domain.KindUnknown {
			msg = fmt.Sprintf("%s (%s)", msg, kind)
		}
		fmt.Fprintln(os.Stderr, render.FormatError(msg))
		stop()
		os.Exit(1)
	}
}
