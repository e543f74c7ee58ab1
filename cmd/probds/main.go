// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dscore/probds/bloom"
	"github.com/dscore/probds/cms"
	"github.com/dscore/probds/quotient"
	"github.com/dscore/probds/ring"

	"github.com/urfave/cli/v2"
)

// readLines reads from stdin, or from the "input" flag's file if set.
func readLines(c *cli.Context) ([]string, error) {
	var reader io.Reader = os.Stdin
	if c.IsSet("input") {
		f, err := os.Open(c.String("input"))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}
	var lines []string
	rdr := bufio.NewReader(reader)
	for {
		l, _, err := rdr.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if s := strings.TrimSpace(string(l)); s != "" {
			lines = append(lines, s)
		}
	}
	return lines, nil
}

func main() {
	app := &cli.App{
		Name:  "probds",
		Usage: "exercise the quotient filter, consistent hash ring, bloom filter and count-min sketch in memory",
		Commands: []*cli.Command{
			quotientCommand(),
			ringCommand(),
			bloomCommand(),
			cmsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func quotientCommand() *cli.Command {
	return &cli.Command{
		Name:  "quotient",
		Usage: "build a quotient filter from lines of input and test membership of its arguments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file to read from (default stdin)"},
			&cli.UintFlag{Name: "q", Value: 10, Usage: "quotient bits"},
			&cli.UintFlag{Name: "r", Value: 16, Usage: "remainder bits"},
			&cli.BoolFlag{Name: "bitpacked", Aliases: []string{"p"}},
		},
		Action: func(c *cli.Context) error {
			lines, err := readLines(c)
			if err != nil {
				return err
			}
			var f *quotient.Filter
			if c.Bool("bitpacked") {
				f, err = quotient.NewBitPacked(c.Uint("q"), c.Uint("r"))
			} else {
				f, err = quotient.New(c.Uint("q"), c.Uint("r"))
			}
			if err != nil {
				return err
			}
			start := time.Now()
			for _, l := range lines {
				f.InsertString(l)
			}
			log.Printf("inserted %d lines in %s", f.Len(), time.Since(start))
			f.DebugDump(false)
			for _, arg := range c.Args().Slice() {
				fmt.Printf("lookup %q: %t\n", arg, f.LookupString(arg))
			}
			return nil
		},
	}
}

func ringCommand() *cli.Command {
	return &cli.Command{
		Name:  "ring",
		Usage: "build a consistent hash ring from comma-separated node positions and route the arguments as resources",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "k", Value: 16, Usage: "ring key width in bits"},
			&cli.StringFlag{Name: "nodes", Usage: "comma-separated node positions", Required: true},
		},
		Action: func(c *cli.Context) error {
			r, err := ring.New(c.Uint("k"))
			if err != nil {
				return err
			}
			for _, tok := range strings.Split(c.String("nodes"), ",") {
				var h uint64
				if _, err := fmt.Sscanf(strings.TrimSpace(tok), "%d", &h); err != nil {
					return fmt.Errorf("bad node position %q: %w", tok, err)
				}
				if err := r.AddNode(h); err != nil {
					return err
				}
			}
			fmt.Printf("ring nodes: %v\n", r.Nodes())
			for _, arg := range c.Args().Slice() {
				var res uint64
				if _, err := fmt.Sscanf(arg, "%d", &res); err != nil {
					return fmt.Errorf("bad resource %q: %w", arg, err)
				}
				if err := r.AddResource(res); err != nil {
					return err
				}
				owner, _ := r.Lookup(res)
				fmt.Printf("resource %d -> node %d\n", res, owner.Value)
			}
			return nil
		},
	}
}

func bloomCommand() *cli.Command {
	return &cli.Command{
		Name:  "bloom",
		Usage: "build a bloom filter from lines of input and test membership of its arguments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file to read from (default stdin)"},
			&cli.UintFlag{Name: "n", Value: 10000, Usage: "expected item count"},
			&cli.Float64Flag{Name: "fp", Value: 0.01, Usage: "target false positive rate"},
		},
		Action: func(c *cli.Context) error {
			lines, err := readLines(c)
			if err != nil {
				return err
			}
			f, err := bloom.NewWithEstimates(c.Uint("n"), c.Float64("fp"))
			if err != nil {
				return err
			}
			for _, l := range lines {
				f.Insert([]byte(l))
			}
			fmt.Printf("bloom filter: m=%d k=%d, %d items inserted, estimated fp rate %.5f\n",
				f.M(), f.K(), f.TotalCount(), f.EstimatedFalsePositiveRate(f.TotalCount()))
			for _, arg := range c.Args().Slice() {
				fmt.Printf("lookup %q: %t\n", arg, f.Lookup([]byte(arg)))
			}
			return nil
		},
	}
}

func cmsCommand() *cli.Command {
	return &cli.Command{
		Name:  "cms",
		Usage: "build a count-min sketch from lines of input (one update of freq 1 per line) and estimate its arguments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file to read from (default stdin)"},
			&cli.Float64Flag{Name: "epsilon", Value: 0.001, Usage: "error bound"},
			&cli.Float64Flag{Name: "delta", Value: 0.01, Usage: "failure probability"},
		},
		Action: func(c *cli.Context) error {
			lines, err := readLines(c)
			if err != nil {
				return err
			}
			s, err := cms.NewWithEstimates(c.Float64("epsilon"), c.Float64("delta"))
			if err != nil {
				return err
			}
			for _, l := range lines {
				if err := s.Update([]byte(l), 1); err != nil {
					return err
				}
			}
			fmt.Printf("sketch: width=%d depth=%d, %d total updates\n", s.Width(), s.Depth(), s.TotalCount())
			for _, arg := range c.Args().Slice() {
				fmt.Printf("estimate %q: %d\n", arg, s.Estimate([]byte(arg)))
			}
			return nil
		},
	}
}
