// SPDX-FileCopyrightText: 2025 GSI Helmholtzzentrum für Schwerionenforschung GmbH
//
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// A stand-in Ruby interpreter. It reports its arguments and the contents of
// the CMock options file so tests can check what cmockgen handed over.
func main() {
	args := os.Args[1:]

	fmt.Println("MOCK-RUBY-EXECUTED")

	if len(args) > 0 {
		fmt.Printf("ARGS: %s\n", strings.Join(args, " "))
	}

	for _, arg := range args {
		path, ok := strings.CutPrefix(arg, "-o")
		if !ok {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot read options: %v\n", err)
			os.Exit(2)
		}

		fmt.Printf("OPTIONS-FILE: %s\n%s", path, data)
	}

	if code, err := strconv.Atoi(os.Getenv("MOCK_RUBY_EXIT")); err == nil {
		fmt.Fprintln(os.Stderr, "mock failure")
		os.Exit(code)
	}
}
