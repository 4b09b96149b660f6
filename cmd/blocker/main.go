// Command blocker manages element blocking and styling rules from the
// command line and serves them over HTTP.
package main

import "github.com/npillmayer/blocker/internal/cli"

func main() {
	cli.Execute()
}
