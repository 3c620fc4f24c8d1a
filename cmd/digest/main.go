// Package main prints the Keccak-256 digest of a document so issuers and
// verifiers can hash locally. The document never leaves the machine.
package main

import (
	"flag"
	"fmt"
	"os"

	"kycgate/pkg/digest"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, `digest - Print the 0x Keccak-256 digest of a document

Usage:
  digest <file>
  digest -        read the document from stdin`)
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	in := os.Stdin
	if path := flag.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening document: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	d, err := digest.Keccak256(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing document: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(d.String())
}
