package main

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/fatih/color"
	"github.com/portableobject/pof"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	green = color.New(color.FgHiGreen).SprintFunc()
	red   = color.New(color.FgHiRed).SprintFunc()
)

func compressor(name string) (pof.Compressor, error) {
	switch name {
	case "":
		return nil, nil
	case "snappy":
		return pof.SnappyCompressor{Incremental: true}, nil
	case "zlib":
		return pof.ZlibCompressor{Level: pof.ZlibDefaultCompression}, nil
	case "zstd":
		return pof.ZstdCompressor{Level: pof.ZstdDefaultCompression}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}

func deltaCompressor(c *cli.Context) pof.DeltaCompressor {
	if c.Bool("binary") {
		return pof.BinaryDeltaCompressor{BlockSize: c.Int("block")}
	}
	return pof.PofDeltaCompressor{}
}

func output(c *cli.Context, b []byte) error {
	if out := c.String("o"); out != "" && out != "-" {
		return ioutil.WriteFile(out, b, 0644)
	}
	_, err := os.Stdout.Write(b)
	return err
}

func readArgs(c *cli.Context, n int) ([][]byte, error) {
	if c.NArg() != n {
		return nil, cli.NewExitError(fmt.Sprintf("expected %d arguments, got %d", n, c.NArg()), 2)
	}
	bufs := make([][]byte, n)
	for i := range bufs {
		b, err := ioutil.ReadFile(c.Args().Get(i))
		if err != nil {
			return nil, err
		}
		bufs[i] = b
	}
	return bufs, nil
}

func diffCommand(c *cli.Context) error {
	bufs, err := readArgs(c, 2)
	if err != nil {
		return err
	}
	comp, err := compressor(c.String("compress"))
	if err != nil {
		return err
	}

	delta, err := deltaCompressor(c).ExtractDelta(bufs[0], bufs[1])
	if err != nil {
		return cli.NewExitError(red(err.Error()), 1)
	}
	if delta == nil {
		fmt.Fprintln(os.Stderr, green("values are identical"))
		return nil
	}
	if comp != nil {
		if delta, err = comp.Compress(delta); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "%s old=%d new=%d delta=%d\n", green("ok"), len(bufs[0]), len(bufs[1]), len(delta))
	return output(c, delta)
}

func applyCommand(c *cli.Context) error {
	bufs, err := readArgs(c, 2)
	if err != nil {
		return err
	}
	comp, err := compressor(c.String("compress"))
	if err != nil {
		return err
	}

	delta := bufs[1]
	if comp != nil {
		if delta, err = comp.Decompress(delta); err != nil {
			return cli.NewExitError(red(err.Error()), 1)
		}
	}
	b, err := deltaCompressor(c).ApplyDelta(bufs[0], delta)
	if err != nil {
		return cli.NewExitError(red(err.Error()), 1)
	}
	return output(c, b)
}

func validateCommand(c *cli.Context) error {
	failed := 0
	for _, name := range c.Args() {
		b, err := ioutil.ReadFile(name)
		if err == nil {
			v := pof.NewValidatingHandler(nil)
			if err = pof.NewParser(v).Parse(b); err == nil {
				err = v.Finish()
			}
		}

		if err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", red("FAIL"), name, err)
			continue
		}
		fmt.Printf("%s %s\n", green("ok"), name)
	}

	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d invalid stream(s)", failed), 1)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "pofdelta"
	app.Usage = "Compute, apply and check deltas between POF streams"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "Log at debug level",
		},
	}
	app.Before = func(c *cli.Context) error {
		if !c.Bool("v") {
			return nil
		}
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		pof.SetLogger(logger)
		return nil
	}

	deltaFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "o",
			Value: "-",
			Usage: "Output file",
		},
		cli.StringFlag{
			Name:  "compress",
			Usage: "Compress the delta with snappy, zlib or zstd",
		},
		cli.BoolFlag{
			Name:  "binary",
			Usage: "Use the byte-level diff instead of the structural one",
		},
		cli.IntFlag{
			Name:  "block",
			Value: 16,
			Usage: "Block size of the byte-level diff",
		},
	}

	app.Commands = []cli.Command{
		cli.Command{
			Name:      "diff",
			Usage:     "Write the delta that turns OLD into NEW",
			ArgsUsage: "OLD NEW",
			Flags:     deltaFlags,
			Action:    diffCommand,
		},
		cli.Command{
			Name:      "apply",
			Usage:     "Apply DELTA to OLD and write the result",
			ArgsUsage: "OLD DELTA",
			Flags:     deltaFlags,
			Action:    applyCommand,
		},
		cli.Command{
			Name:      "validate",
			Usage:     "Check that every FILE holds one valid POF value",
			ArgsUsage: "FILE...",
			Action:    validateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}
