// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command fxsnapshot is an offline inspection tool for JavaScript-engine
// heap snapshots: it opens one such snapshot and evaluates a small
// declarative query language over it, writing the resulting value to
// standard output (§1, §6).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jimblandy/fxsnapshot/dump"
	"github.com/jimblandy/fxsnapshot/query"
)

var (
	dashv        bool
	printBuild   bool
	printVersion bool
)

// version is overridden at release build time via -ldflags.
var version = "dev"

func init() {
	flagDefaultUsage = flag.CommandLine.Usage
	flag.CommandLine.Usage = printUsage

	flag.BoolVar(&dashv, "v", false, "log diagnostic information (e.g. avoidable back-references) to stderr")
	flag.BoolVar(&printBuild, "build", false, "print the build info of this executable")
	flag.BoolVar(&printVersion, "version", false, "print the version of this executable")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] FILE QUERY\n", os.Args[0])
	flagDefaultUsage()
}

var flagDefaultUsage func()

func main() {
	flag.Parse()

	if printVersion {
		fmt.Println(version)
		return
	}
	if printBuild {
		printBuildInfo()
		return
	}

	args := flag.Args()
	if len(args) != 2 {
		printUsage()
		os.Exit(2)
	}
	if err := run(args[0], args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path, queryText string) error {
	var verbose *log.Logger
	if dashv {
		verbose = log.New(os.Stderr, "", 0)
	}

	buf, err := readSnapshotFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	snap, err := dump.FromBytes(path, buf, verbose)
	if err != nil {
		return err
	}

	expr, err := query.Parse(queryText)
	if err != nil {
		return err
	}

	p, err := query.BuildPlan(expr)
	if err != nil {
		return err
	}

	ctx := &query.Context{Snapshot: snap, Log: verbose}
	result, err := p.Execute(&query.Activation{}, ctx)
	if err != nil {
		return err
	}

	if err := query.Print(os.Stdout, result); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func readSnapshotFile(path string) ([]byte, error) {
	if dump.IsCompressedPath(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dump.ReadCompressed(f)
	}
	return os.ReadFile(path)
}
