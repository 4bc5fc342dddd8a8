// Command anystore reads and writes values in any anystore backend.
//
// Usage:
//
//	anystore [flags] get <address>
//	anystore [flags] set <address> <value|->
//	anystore [flags] delete <address>
//	anystore [flags] list [address]
//	anystore [flags] walk [address]
//	anystore version
//
// Every flag can also be given as an ANYSTORE_* environment variable, with
// dashes turned into underscores, or in a .env / .env.local file.
package main

import "os"

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
