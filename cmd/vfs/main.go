// Command vfs browses local directories, S3 buckets, and zip archives
// through one interface.
package main

import (
	"os"

	"github.com/meigma/vfs/cmd/vfs/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
