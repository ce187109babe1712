package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bodgit/qoitool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

const defaultDB = "qoi.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

// newLogger builds the console logger, --verbose overrides --log-level
func newLogger(c *cli.Context) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(c.String("log-level"))
	if err != nil {
		return zerolog.Nop(), err
	}
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
}

func newConfig(c *cli.Context) qoitool.Config {
	cfg := qoitool.DefaultConfig()
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("max-pixels") {
		cfg.MaxPixels = c.Uint64("max-pixels")
	}
	return cfg
}

// open builds a Tool, only opening the database when the command needs it
func open(c *cli.Context, withDB bool) (*qoitool.Tool, error) {
	cfg := newConfig(c)
	cfg.Index = !c.Bool("no-index")

	db := ""
	if withDB && !c.Bool("no-db") {
		db = c.String("db")
	}

	logger, err := newLogger(c)
	if err != nil {
		return nil, err
	}

	return qoitool.Open(cfg, db, logger)
}

func main() {
	app := cli.NewApp()

	app.Name = "qoi"
	app.Usage = "QOI image inspection and conversion utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app.Flags = []cli.Flag{
		&cli.Uint64Flag{
			Name:    "max-pixels",
			EnvVars: []string{"QOI_MAX_PIXELS"},
			Value:   qoitool.DefaultConfig().MaxPixels,
			Usage:   "refuse to decode images with more than this many pixels",
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"QOI_LOG_LEVEL"},
			Value:   zerolog.WarnLevel.String(),
			Usage:   "log `LEVEL`, one of trace, debug, info, warn, error",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity, same as --log-level debug",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the header of one or more images",
			ArgsUsage: "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t, err := open(c, false)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer t.Close()

				for _, file := range c.Args().Slice() {
					desc, err := t.Info(file)
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Fprintf(c.App.Writer, "%s: %s\n", file, desc)
				}

				return nil
			},
		},
		{
			Name:      "convert",
			Usage:     "Convert an image to PNG, GIF, JPEG, BMP or TIFF",
			ArgsUsage: "INPUT OUTPUT",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "width",
					Usage: "scale to this width, keeping the aspect ratio",
				},
				&cli.IntFlag{
					Name:  "colors",
					Usage: "reduce to this many colors",
				},
				&cli.BoolFlag{
					Name:  "dither",
					Usage: "dither when reducing colors",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t, err := open(c, false)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer t.Close()

				opts := qoitool.ConvertOptions{
					Width:  c.Int("width"),
					Colors: c.Int("colors"),
					Dither: c.Bool("dither"),
				}

				if err := t.Convert(c.Args().Get(0), c.Args().Get(1), opts); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "dump",
			Usage:     "Write the raw decoded pixels",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "write to `FILE` instead of stdout",
				},
				&cli.BoolFlag{
					Name:  "zstd",
					Usage: "compress the output with zstd",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t, err := open(c, false)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer t.Close()

				out := os.Stdout
				if file := c.String("output"); file != "" {
					if out, err = os.Create(file); err != nil {
						return cli.Exit(err, 1)
					}
					defer out.Close()
				}

				w := bufio.NewWriter(out)
				if err := t.Dump(c.Args().First(), w, c.Bool("zstd")); err != nil {
					return cli.Exit(err, 1)
				}
				if err := w.Flush(); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "scan",
			Usage:     "Scan a directory tree, decoding and cataloguing every image",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "db",
					EnvVars: []string{"QOI_DB"},
					Value:   filepath.Join(cwd, defaultDB),
					Usage:   "path to database",
				},
				&cli.BoolFlag{
					Name:  "no-db",
					Usage: "do not use a database",
				},
				&cli.BoolFlag{
					Name:  "no-index",
					Usage: "do not write an index to each directory",
				},
				&cli.IntFlag{
					Name:    "workers",
					EnvVars: []string{"QOI_WORKERS"},
					Value:   qoitool.DefaultConfig().Workers,
					Usage:   "number of directories to scan concurrently",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				t, err := open(c, true)
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer t.Close()

				s, err := t.Scan(c.Context, c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Fprintf(c.App.Writer, "decoded %d, cached %d, failed %d\n", s.Decoded, s.Cached, s.Failed)

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
