package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-bscrypt/bscrypt"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "hash":
		runHash(os.Args[2:])
	case "verify":
		runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bscrypt hash [-m KiB] [-t iterations] [-p parallelism] <password>")
	fmt.Fprintln(os.Stderr, "       bscrypt verify <hash> <password>")
}

func runHash(args []string) {
	fs := flag.NewFlagSet("hash", flag.ExitOnError)
	m := fs.Uint("m", 65536, "memory cost in KiB")
	t := fs.Uint("t", 3, "iteration count")
	p := fs.Uint("p", 1, "parallelism (number of lanes)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	params := bscrypt.Params{
		MemoryKiB:   uint32(*m),
		Iterations:  uint32(*t),
		Parallelism: uint32(*p),
	}

	hash, err := bscrypt.Hash([]byte(fs.Arg(0)), params, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bscrypt:", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, hash)
}

func runVerify(args []string) {
	if len(args) != 2 {
		usage()
		os.Exit(1)
	}

	ok, err := bscrypt.Verify(args[0], []byte(args[1]), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bscrypt:", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stdout, "no match")
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, "match")
}
