// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// fwcompile compiles a declarative firewall rule model into iptables or
// nftables syntax.
//
// Usage:
//
//	fwcompile compile -input=fixture.yaml -output=out/
//	fwcompile check -input=fixture.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.linuxfabrik.ch/fwcompile/internal/fwdriver"
	"go.linuxfabrik.ch/fwcompile/internal/fwerrors"
	"go.linuxfabrik.ch/fwcompile/internal/fwio"
	"go.linuxfabrik.ch/fwcompile/internal/fwmodel"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(fwerrors.ExitError)
	}

	switch os.Args[1] {
	case "compile":
		os.Exit(runCompile(os.Args[2:]))
	case "check":
		os.Exit(runCheck(os.Args[2:]))
	default:
		usage()
		os.Exit(fwerrors.ExitError)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fwcompile <compile|check> [flags]")
}

func runCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	input := fs.String("input", "", "path to the YAML domain-model fixture")
	output := fs.String("output", "out", "output directory for rendered rulesets")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "compile: -input is required")
		return fwerrors.ExitError
	}

	lib, firewalls, err := loadFixture(*input)
	if err != nil {
		log.Printf("compile: %v", err)
		return fwerrors.ExitError
	}

	results, err := fwdriver.CompileAll(context.Background(), lib, firewalls)
	if err != nil {
		log.Printf("compile: %v", err)
		return fwerrors.ExitError
	}

	if err := os.MkdirAll(*output, 0o755); err != nil {
		log.Printf("compile: %v", err)
		return fwerrors.ExitError
	}

	exit := fwerrors.ExitSuccess
	for _, res := range results {
		for _, d := range res.Diagnostics {
			log.Printf("%s", d.Error())
			if d.Severity == fwerrors.SeverityError && exit < fwerrors.ExitError {
				exit = fwerrors.ExitError
			} else if exit < fwerrors.ExitWarning {
				exit = fwerrors.ExitWarning
			}
		}
		if len(res.Lines) == 0 && len(res.NFTLines) == 0 {
			continue
		}
		family := "v4"
		if res.IPv6 {
			family = "v6"
		}
		name := filepath.Join(*output, fmt.Sprintf("%s-%s-%s.rules", res.Firewall, res.RuleSet, family))
		f, err := os.Create(name)
		if err != nil {
			log.Printf("compile: %v", err)
			return fwerrors.ExitError
		}
		if len(res.Lines) > 0 {
			err = fwdriver.WriteIPT(f, res)
		} else {
			err = fwdriver.WriteNFT(f, res, "fw")
		}
		f.Close()
		if err != nil {
			log.Printf("compile: %v", err)
			return fwerrors.ExitError
		}
	}
	return exit
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	input := fs.String("input", "", "path to the YAML domain-model fixture")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "check: -input is required")
		return fwerrors.ExitError
	}

	lib, firewalls, err := loadFixture(*input)
	if err != nil {
		log.Printf("check: %v", err)
		return fwerrors.ExitError
	}

	results, err := fwdriver.CompileAll(context.Background(), lib, firewalls)
	if err != nil {
		log.Printf("check: %v", err)
		return fwerrors.ExitError
	}

	exit := fwerrors.ExitSuccess
	for _, res := range results {
		for _, d := range res.Diagnostics {
			log.Printf("%s", d.Error())
			if d.Severity == fwerrors.SeverityError {
				exit = fwerrors.ExitError
			} else if exit < fwerrors.ExitWarning {
				exit = fwerrors.ExitWarning
			}
		}
	}
	return exit
}

func loadFixture(path string) (*fwmodel.Library, []*fwmodel.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	lib, err := fwio.Load(f)
	if err != nil {
		return nil, nil, err
	}
	var firewalls []*fwmodel.Device
	for _, d := range lib.Devices {
		firewalls = append(firewalls, d)
	}
	return lib, firewalls, nil
}
