package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:  "env",
			Usage: "environment file path",
			Value: ".env",
		}
	}
	ownerFlag := func() cli.Flag {
		return &cli.Int64Flag{
			Name:     "owner",
			Usage:    "account id",
			Required: true,
		}
	}

	app := &cli.Command{
		Name:  "autopostctl",
		Usage: "operator commands for the autopost service",
		Commands: []*cli.Command{
			{
				Name:  "credits",
				Usage: "credit ledger commands",
				Commands: []*cli.Command{
					{
						Name:  "grant",
						Usage: "add credit to an account",
						Flags: []cli.Flag{
							envFlag(),
							ownerFlag(),
							&cli.IntFlag{Name: "amount", Usage: "credit to add", Required: true},
							&cli.StringFlag{Name: "reason", Usage: "ledger note", Value: "operator grant"},
						},
						Action: CreditGrantAction,
					},
					{
						Name:  "history",
						Usage: "show recent ledger rows",
						Flags: []cli.Flag{
							envFlag(),
							ownerFlag(),
							&cli.IntFlag{Name: "limit", Value: 20},
						},
						Action: CreditHistoryAction,
					},
				},
			},
			{
				Name:  "keywords",
				Usage: "keyword queue commands",
				Commands: []*cli.Command{
					{
						Name:  "add",
						Usage: "register keywords, highest priority first",
						Flags: []cli.Flag{
							envFlag(),
							ownerFlag(),
							&cli.StringSliceFlag{Name: "keyword", Aliases: []string{"k"}, Required: true},
						},
						Action: KeywordAddAction,
					},
				},
			},
			{
				Name:  "queue",
				Usage: "asset queue commands",
				Commands: []*cli.Command{
					{
						Name:  "status",
						Usage: "show asset jobs of a post",
						Flags: []cli.Flag{
							envFlag(),
							&cli.Int64Flag{Name: "post", Usage: "post id", Required: true},
						},
						Action: QueueStatusAction,
					},
				},
			},
			{
				Name:  "tick",
				Usage: "run one scheduler tick now and wait for its runs",
				Flags: []cli.Flag{
					envFlag(),
				},
				Action: TickAction,
			},
			{
				Name:  "process-assets",
				Usage: "render pending asset jobs once",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{Name: "concurrency", Value: 5},
				},
				Action: ProcessAssetsAction,
			},
			{
				Name:  "cost",
				Usage: "price the next run of an account",
				Flags: []cli.Flag{
					envFlag(),
					ownerFlag(),
				},
				Action: RunCostAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
