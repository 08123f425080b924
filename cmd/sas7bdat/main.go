// Command sas7bdat converts SAS7BDAT files to delimited text and
// inspects their metadata.  It consumes only the public schema and
// row-iteration operations of the decoder.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/caot/sas7bdat"
)

// CLI defines the command-line interface.
var CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging."`

	Convert ConvertCmd `cmd:"" help:"Convert SAS7BDAT files to delimited text."`
	Info    InfoCmd    `cmd:"" help:"Print header and column metadata."`
}

// ConvertCmd converts one or more files to delimited text.
type ConvertCmd struct {
	Files []string `arg:"" help:"SAS7BDAT files to convert." type:"existingfile"`

	OutDir         string `help:"Directory for output files; a single input without this flag writes to stdout." type:"existingdir"`
	Delimiter      string `default:"," help:"Field delimiter."`
	DateFormat     string `default:"2006-01-02" help:"Go layout for date values."`
	DatetimeFormat string `default:"2006-01-02 15:04:05" help:"Go layout for datetime values."`
	HeaderOnly     bool   `help:"Print metadata only; do not convert rows."`
	Lenient        bool   `help:"Skip rows that fail decompression instead of aborting."`
	Jobs           int    `default:"4" help:"Number of files converted concurrently."`
}

func (c *ConvertCmd) Run(logger *slog.Logger) error {

	if len(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}

	if c.OutDir == "" {
		if len(c.Files) > 1 && !c.HeaderOnly {
			return fmt.Errorf("converting %d files to stdout; use --out-dir", len(c.Files))
		}
		for _, file := range c.Files {
			if err := c.convertOne(logger, file, os.Stdout); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(c.Jobs)
	for _, file := range c.Files {
		file := file
		g.Go(func() error {
			base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			out, err := os.Create(filepath.Join(c.OutDir, base+".csv"))
			if err != nil {
				return err
			}
			defer out.Close()
			if err := c.convertOne(logger, file, out); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *ConvertCmd) convertOne(logger *slog.Logger, file string, out *os.File) error {

	t, err := sas7bdat.OpenFile(file)
	if err != nil {
		return err
	}
	defer t.Close()
	t.Lenient = c.Lenient
	t.Log = logger

	logger.Debug("opened table", "file", file,
		"columns", len(t.Schema().Columns), "rows", t.Schema().RowCount)

	if c.HeaderOnly {
		return t.WriteMetadata(out)
	}

	e := sas7bdat.NewExporter()
	e.Delimiter = rune(c.Delimiter[0])
	e.DateFormat = c.DateFormat
	e.DateTimeFormat = c.DatetimeFormat
	return e.Export(out, t)
}

// InfoCmd pretty-prints header and column metadata.
type InfoCmd struct {
	Files []string `arg:"" help:"SAS7BDAT files to inspect." type:"existingfile"`
}

func (c *InfoCmd) Run(logger *slog.Logger) error {
	for _, file := range c.Files {
		t, err := sas7bdat.OpenFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		fmt.Printf("%s\n\n", file)
		err = t.WriteMetadata(os.Stdout)
		t.Close()
		if err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("sas7bdat"),
		kong.Description("Decode SAS7BDAT files without a SAS installation."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	err := ctx.Run(logger)
	ctx.FatalIfErrorf(err)
}
