package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/unfurl/cmd/unfurl/commands"
	"github.com/teranos/unfurl/config"
	"github.com/teranos/unfurl/driver"
	"github.com/teranos/unfurl/errors"
	"github.com/teranos/unfurl/format"
	"github.com/teranos/unfurl/logger"
)

var (
	flagList           bool
	flagTable          bool
	flagMetadata       bool
	flagRecursive      bool
	flagOneEntry       string
	flagBatch          bool
	flagPassword       string
	flagOverwrite      bool
	flagFlat           bool
	flagVerbose        int
	flagQuiet          int
	flagListExtensions bool
)

// exitCode carries the session result out through cobra.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "unfurl [options] archive [archive2 ...]",
	Short: "Intelligent archive extractor",
	Long: `unfurl extracts archives of many formats with a single command,
taking care of the annoying parts itself: it picks the right tool,
keeps everything in one new directory unless the archive was built
properly, fixes unusable permissions on the results, and offers to
extract archives found inside the extraction.

Examples:
  unfurl project-1.0.tar.gz        # extract into ./project-1.0/
  unfurl -l backup.rar             # list contents without extracting
  unfurl -r bundle.tar             # also extract archives found inside
  unfurl -n *.zip                  # no questions asked`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagListExtensions {
			for _, ext := range format.SupportedExtensions() {
				fmt.Fprintln(cmd.OutOrStdout(), ext)
			}
			return nil
		}
		if len(args) == 0 {
			return errors.New("you did not list any archives")
		}

		logger.Initialize(logger.VerbosityToLevel(flagVerbose, flagQuiet))
		defer logger.Cleanup()

		cfg, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "could not load configuration")
		}

		app, err := driver.New(driver.Options{
			ListOnly:        flagList || flagTable,
			Metadata:        flagMetadata,
			Recursive:       flagRecursive,
			OneEntryDefault: flagOneEntry,
			Batch:           flagBatch,
			Password:        flagPassword,
			Overwrite:       flagOverwrite,
			Flat:            flagFlat,
			ShowExtracted:   flagVerbose > flagQuiet,
		}, cfg, nil, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		exitCode = app.Run(ctx, args)
		app.Summary()
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVarP(&flagList, "list", "l", false, "list contents of archives on standard output")
	flags.BoolVarP(&flagTable, "table", "t", false, "same as --list")
	flags.BoolVarP(&flagMetadata, "metadata", "m", false, "extract metadata from a .deb/.gem")
	flags.BoolVarP(&flagRecursive, "recursive", "r", false, "extract archives contained in the ones listed")
	flags.StringVar(&flagOneEntry, "one", "", "specify extraction policy for one-entry archives: inside/rename/here")
	flags.BoolVarP(&flagBatch, "noninteractive", "n", false, "don't ask how to handle special cases")
	flags.StringVarP(&flagPassword, "password", "p", "", "provide a password for password-protected archives")
	flags.BoolVarP(&flagOverwrite, "overwrite", "o", false, "overwrite any existing target output")
	flags.BoolVarP(&flagFlat, "flat", "f", false, "extract everything to the current directory")
	flags.CountVarP(&flagVerbose, "verbose", "v", "be verbose/print debugging information")
	flags.CountVarP(&flagQuiet, "quiet", "q", "suppress warning/error messages")
	flags.BoolVar(&flagListExtensions, "list-extensions", false,
		"list supported filetypes by extension; extraction still relies on the appropriate tool being installed")
	flags.MarkHidden("table")

	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "unfurl: error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
