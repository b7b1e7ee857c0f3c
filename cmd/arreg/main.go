// The arreg CLI tool inspects asset registry blobs, converts them to editable
// snapshot documents and encodes edited snapshots back into blobs.
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/trumank/drg-mods/encio"
	"github.com/trumank/drg-mods/internal/config"
)

var versionGitCommit = "dev"

type arreg struct {
	cfg config.Config
}

func newApp(out io.Writer) *cli.App {
	a := new(arreg)
	app := &cli.App{
		Name:    "arreg",
		Usage:   "Asset registry codec tool",
		Version: versionGitCommit,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML configuration file", EnvVars: []string{"ARREG_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"LOG_LEVEL"}},
			&cli.BoolFlag{Name: "strict", Usage: "Fail instead of masking values too wide for their field when encoding"},
		},
		Before: a.before,
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Summarize a registry blob",
			ArgsUsage: "BLOB",
			Action:    a.info,
		},
		{
			Name:      "export",
			Usage:     "Write a registry blob as a snapshot document",
			ArgsUsage: "BLOB OUT",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "format", Usage: "Snapshot format (yaml, json, cbor), default from OUT's extension"},
				&cli.StringFlag{Name: "compression", Usage: "Snapshot compression (none, zstd, lz4), default from OUT's extension"},
			},
			Action: a.export,
		},
		{
			Name:      "import",
			Usage:     "Encode a snapshot document back into a registry blob",
			ArgsUsage: "SNAPSHOT OUT",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "format", Usage: "Snapshot format (yaml, json, cbor), default from SNAPSHOT's extension"},
				&cli.StringFlag{Name: "compression", Usage: "Snapshot compression (none, zstd, lz4), default from SNAPSHOT's extension"},
				&cli.BoolFlag{Name: "require-match", Usage: "Fail if the encoded blob differs from the blob the snapshot was exported from"},
			},
			Action: a.importSnapshot,
		},
		{
			Name:      "verify",
			Usage:     "Check that registry blobs decode and re-encode consistently",
			ArgsUsage: "BLOB...",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "workers", Usage: "Maximum blobs checked at once, default from config"},
			},
			Action: a.verify,
		},
		{
			Name:      "assets",
			Usage:     "List the assets of a registry blob",
			ArgsUsage: "BLOB",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "class", Usage: "Only list assets of this class"},
			},
			Action: a.assets,
		},
	}

	return app
}

func (a *arreg) before(c *cli.Context) error {
	a.cfg = config.Default()
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if c.IsSet("log-level") {
		logLevel, err := logrus.ParseLevel(c.String("log-level"))
		if err != nil {
			return errors.Wrap(err, "parse log level")
		}
		a.cfg.LogLevel = logLevel
	}
	if c.IsSet("strict") {
		a.cfg.Strict = c.Bool("strict")
	}

	logrus.SetLevel(a.cfg.LogLevel)

	logrus.WithFields(logrus.Fields{
		"strict":      a.cfg.Strict,
		"format":      a.cfg.Snapshot.Format,
		"compression": a.cfg.Snapshot.Compression,
		"workers":     a.cfg.Workers,
	}).Debug("configuration loaded")
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	warnings := logrus.StandardLogger().WriterLevel(logrus.WarnLevel)
	encio.Warnings = warnings

	err := newApp(os.Stdout).Run(os.Args)
	warnings.Close()
	if err != nil {
		logrus.Fatal(err)
	}
}
