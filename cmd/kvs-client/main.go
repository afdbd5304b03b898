// Command kvs-client is the blocking CLI client (spec.md section 4.8: C8).
// Grounded on _examples/original_source/src/bin/kvs-client.rs for the
// set/get/rm subcommands, supplemented with an interactive REPL mode (not
// present in the original) built on chzyer/readline for a better multi-
// command session than a one-shot process per call.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"kvs"
	"kvs/internal/kverrors"
	"kvs/pkg/kvclient"
)

func main() {
	if len(os.Args) < 2 {
		runRepl(nil)
		return
	}

	switch os.Args[1] {
	case "set":
		runSet(os.Args[2:])
	case "get":
		runGet(os.Args[2:])
	case "rm":
		runRm(os.Args[2:])
	case "repl":
		runRepl(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "kvs-client: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: kvs-client <set|get|rm|repl> [-addr host:port] [args]")
}

func runSet(args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	addr := fs.String("addr", kvs.DefaultAddr, "server address")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 2 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client set [-addr host:port] <key> <value>")
		os.Exit(1)
	}
	withClient(*addr, func(c *kvclient.Client) {
		fail(c.Set(rest[0], rest[1]))
	})
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	addr := fs.String("addr", kvs.DefaultAddr, "server address")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client get [-addr host:port] <key>")
		os.Exit(1)
	}
	withClient(*addr, func(c *kvclient.Client) {
		value, ok, err := c.Get(rest[0])
		fail(err)
		if !ok {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)
	})
}

func runRm(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	addr := fs.String("addr", kvs.DefaultAddr, "server address")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "usage: kvs-client rm [-addr host:port] <key>")
		os.Exit(1)
	}
	withClient(*addr, func(c *kvclient.Client) {
		fail(c.Remove(rest[0]))
	})
}

func runRepl(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	addr := fs.String("addr", kvs.DefaultAddr, "server address")
	fs.Parse(args)

	c, err := kvclient.Connect(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	rl, err := readline.New("kvs> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("connected to", *addr, "- commands: set <k> <v> | get <k> | rm <k> | exit")
	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := dispatchReplLine(c, fields); err != nil {
			if err == errExit {
				return
			}
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

var errExit = fmt.Errorf("exit")

func dispatchReplLine(c *kvclient.Client, fields []string) error {
	switch strings.ToLower(fields[0]) {
	case "exit", "quit":
		return errExit
	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		return c.Set(fields[1], fields[2])
	case "get":
		if len(fields) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		value, ok, err := c.Get(fields[1])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Key not found")
			return nil
		}
		fmt.Println(value)
		return nil
	case "rm":
		if len(fields) != 2 {
			return fmt.Errorf("usage: rm <key>")
		}
		return c.Remove(fields[1])
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}

func withClient(addr string, fn func(*kvclient.Client)) {
	c, err := kvclient.Connect(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
	fn(c)
}

func fail(err error) {
	if err == nil {
		return
	}
	if kverrors.IsKeyNotFound(err) {
		fmt.Println("Key not found")
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "kvs-client: %v\n", err)
	os.Exit(1)
}
