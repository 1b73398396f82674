package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/directory"
	"github.com/dargueta/tfs/driver"
	"github.com/noxer/bytewriter"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "tfs",
		Usage: "Exercise an in-memory TFS engine with files from the host",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML file with engine settings",
			},
			&cli.StringFlag{
				Name:    "preset",
				Aliases: []string{"p"},
				Usage:   "capacity preset to start from (see `tfs presets`)",
				Value:   tfs.DefaultPresetSlug,
			},
			&cli.UintFlag{
				Name:  "delay",
				Usage: "artificial delay per block or inode access, in milliseconds",
			},
			&cli.BoolFlag{
				Name:  "whole-blocks",
				Usage: "export every allocated block in full",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "one of: trace, debug, info, warn, error",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "presets",
				Usage:  "List the predefined capacity presets",
				Action: listPresets,
			},
			{
				Name:      "roundtrip",
				Usage:     "Copy a host file into the engine and back out again",
				ArgsUsage: "SOURCE DESTINATION",
				Action:    roundTrip,
			},
			{
				Name:      "inspect",
				Usage:     "Import a host file and show how the engine stores it",
				ArgsUsage: "SOURCE",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "head",
						Usage: "number of bytes to dump from the start of the file",
						Value: 64,
					},
				},
				Action: inspect,
			},
			{
				Name:      "ls",
				Usage:     "Import host files and list the engine's root directory",
				ArgsUsage: "SOURCE...",
				Action:    listImported,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

// mountFromFlags builds the engine configuration from the preset, the config
// file, the environment, and the command line, in that order, and mounts a new
// engine with it.
func mountFromFlags(context *cli.Context) (*driver.Driver, error) {
	preset, err := tfs.GetPreset(context.String("preset"))
	if err != nil {
		return nil, err
	}

	config, err := tfs.LoadConfigFrom(preset.Config(), context.String("config"))
	if err != nil {
		return nil, err
	}
	if context.IsSet("delay") {
		config.AccessDelayMS = context.Uint("delay")
	}
	if context.IsSet("whole-blocks") {
		config.ExportWholeBlocks = context.Bool("whole-blocks")
	}

	level, err := logrus.ParseLevel(context.String("log-level"))
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(context.App.ErrWriter)
	logger.SetLevel(level)

	d, err := driver.New(config, logger)
	if err != nil {
		return nil, err
	}
	return d, d.Mount()
}

// engineName turns a host path into a name the engine accepts.
func engineName(hostPath string) string {
	name := filepath.Base(hostPath)
	if len(name) > directory.MaxNameLength {
		name = name[:directory.MaxNameLength]
	}
	return directory.Separator + name
}

func importFile(d *driver.Driver, hostPath string) (string, error) {
	source, err := os.Open(hostPath)
	if err != nil {
		return "", err
	}
	defer source.Close()

	path := engineName(hostPath)
	if _, err = d.CopyFromExternal(source, path); err != nil {
		return "", fmt.Errorf("importing %q: %w", hostPath, err)
	}
	return path, nil
}

func listPresets(context *cli.Context) error {
	output := tabwriter.NewWriter(context.App.Writer, 0, 8, 2, ' ', 0)
	fmt.Fprintln(output, "SLUG\tBLOCK SIZE\tBLOCKS\tINODES\tHANDLES\tMAX FILE\tDESCRIPTION")
	for _, preset := range tfs.Presets() {
		fmt.Fprintf(
			output,
			"%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			preset.Slug,
			preset.BlockSize,
			preset.TotalBlocks,
			preset.TotalInodes,
			preset.MaxOpenFiles,
			preset.Config().MaxFileSize(),
			preset.Description,
		)
	}
	return output.Flush()
}

func roundTrip(context *cli.Context) error {
	if context.NArg() != 2 {
		return cli.Exit("expected exactly two arguments: SOURCE DESTINATION", 1)
	}

	d, err := mountFromFlags(context)
	if err != nil {
		return err
	}
	defer d.Unmount()

	path, err := importFile(d, context.Args().Get(0))
	if err != nil {
		return err
	}

	written, err := d.CopyToExternalFile(path, context.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "%s: exported %d bytes\n", path, written)
	return nil
}

func inspect(context *cli.Context) error {
	if context.NArg() != 1 {
		return cli.Exit("expected exactly one argument: SOURCE", 1)
	}

	d, err := mountFromFlags(context)
	if err != nil {
		return err
	}
	defer d.Unmount()

	path, err := importFile(d, context.Args().Get(0))
	if err != nil {
		return err
	}

	stat, err := d.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(
		context.App.Writer,
		"%s: inode %d, %s, %d bytes in %d block(s) of %d bytes, %d block(s) free\n",
		strings.TrimPrefix(path, directory.Separator),
		stat.Inumber,
		stat.Kind,
		stat.Size,
		stat.NumBlocks,
		stat.BlockSize,
		d.FreeBlocks(),
	)

	head := int64(context.Int("head"))
	if head > stat.Size {
		head = stat.Size
	}
	if head <= 0 {
		return nil
	}

	file, err := d.OpenFile(path, tfs.O_NONE)
	if err != nil {
		return err
	}
	defer file.Close()

	preview := make([]byte, head)
	if _, err = io.CopyN(bytewriter.New(preview), file, head); err != nil {
		return err
	}
	_, err = io.WriteString(context.App.Writer, hex.Dump(preview))
	return err
}

func listImported(context *cli.Context) error {
	if context.NArg() == 0 {
		return cli.Exit("expected at least one file to import", 1)
	}

	d, err := mountFromFlags(context)
	if err != nil {
		return err
	}
	defer d.Unmount()

	for _, hostPath := range context.Args().Slice() {
		if _, err = importFile(d, hostPath); err != nil {
			return err
		}
	}

	entries, err := d.ReadDir()
	if err != nil {
		return err
	}

	output := tabwriter.NewWriter(context.App.Writer, 0, 8, 2, ' ', 0)
	fmt.Fprintln(output, "INODE\tSIZE\tBLOCKS\tNAME")
	for _, entry := range entries {
		stat, err := d.Stat(directory.Separator + entry.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(output, "%d\t%d\t%d\t%s\n", entry.Inumber, stat.Size, stat.NumBlocks, entry.Name)
	}
	fmt.Fprintf(output, "\t\t\t(%d block(s) free)\n", d.FreeBlocks())
	return output.Flush()
}
