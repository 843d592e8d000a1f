package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/vfs"
)

var catCmd = &cobra.Command{
	Use:   "cat <url> <path>",
	Short: "Output a file's contents",
	Long: `Cat streams the contents of one file to stdout.

Examples:
  vfs cat /etc hosts
  vfs cat s3://datasets/raw labels.csv
  vfs cat /data/train.zip images/0001.png > 0001.png`,
	Args: cobra.ExactArgs(2),
	RunE: runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(_ *cobra.Command, args []string) error {
	url, path := args[0], args[1]

	fsys, err := vfs.FromURL(url, urlOptions()...)
	if err != nil {
		return err
	}
	defer fsys.Close()

	f, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return err
}
