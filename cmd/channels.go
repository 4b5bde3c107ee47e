package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"NawaxRadio/model"
	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "列出频道",
	Long:  `打印当前生效的频道目录 (内置频道或 CHANNELS_FILE) 及其筛选条件。`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := server.NewChannelDirectory(cfg)

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tNAME\tTYPES\tMOODS\tYEARS\tLATEST\tMAX")
		for _, ch := range dir.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%d\n",
				ch.Key,
				ch.Name,
				strings.Join(ch.Filter.Types, ","),
				strings.Join(ch.Filter.Moods, ","),
				yearRange(ch.Filter),
				ch.Filter.Latest,
				ch.MaxSongs)
		}
		tw.Flush()
	},
}

func yearRange(f model.ChannelFilter) string {
	if !f.HasYearRange() {
		return "-"
	}
	from, to := "", ""
	if f.YearFrom != nil {
		from = fmt.Sprint(*f.YearFrom)
	}
	if f.YearTo != nil {
		to = fmt.Sprint(*f.YearTo)
	}
	return from + ".." + to
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}
