package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "report":
		if err := runReport(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("ixpscope %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ixpscope - IXP membership reports from the Internet Yellow Pages

Usage:
  ixpscope report [--config <path>] [--out <dir>] [--regions CC,CC,...]
                  [--slice all|transit|eyeball|content|international]
                  [--normalize] [--no-cache]
  ixpscope config [--config <path>]
  ixpscope version
  ixpscope help

Commands:
  report    Run the full analysis and write HTML artifacts
  config    Print the resolved configuration and where each value came from
  version   Print version`)
}
