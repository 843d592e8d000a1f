package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/vfs"
	"github.com/meigma/vfs/zipfs"
)

var statHuman bool

var statCmd = &cobra.Command{
	Use:   "stat <url> <path>",
	Short: "Print metadata for a path",
	Long: `Stat prints metadata for one path. For paths inside zip archives the
archive-level fields (compression method, CRC, compressed size) are
included.

Examples:
  vfs stat /var/log syslog
  vfs stat s3://datasets/archives/2024.zip images/0001.png`,
	Args: cobra.ExactArgs(2),
	RunE: runStat,
}

func init() {
	statCmd.Flags().BoolVarP(&statHuman, "human-readable", "H", false, "Print sizes in human-readable format")
	rootCmd.AddCommand(statCmd)
}

func runStat(_ *cobra.Command, args []string) error {
	url, path := args[0], args[1]

	fsys, err := vfs.FromURL(url, urlOptions()...)
	if err != nil {
		return err
	}
	defer fsys.Close()

	info, err := fsys.Stat(path)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "name\t%s\n", info.Name())
	fmt.Fprintf(tw, "size\t%s\n", statSize(info.Size()))
	fmt.Fprintf(tw, "mode\t%s\n", info.Mode())
	fmt.Fprintf(tw, "modified\t%s\n", info.ModTime().UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(tw, "dir\t%t\n", info.IsDir())

	if ei, ok := info.(*zipfs.EntryInfo); ok {
		fmt.Fprintf(tw, "method\t%d\n", ei.Method())
		fmt.Fprintf(tw, "crc32\t%08x\n", ei.CRC32())
		fmt.Fprintf(tw, "compressed\t%s\n", statSize(ei.CompressedSize()))
		if ei.Comment() != "" {
			fmt.Fprintf(tw, "comment\t%s\n", ei.Comment())
		}
	}
	return nil
}

func statSize(size int64) string {
	if statHuman {
		return humanize.IBytes(uint64(size))
	}
	return fmt.Sprintf("%d", size)
}
