package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bascanada/hblog/pkg/fanout"
	"github.com/bascanada/hblog/pkg/hblog"
	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/bascanada/hblog/pkg/tier"
	"github.com/spf13/cobra"
)

var (
	modeSummary bool
	modeDetails bool
	modeFollow  bool

	flagStart   string
	flagEnd     string
	flagTail    string
	flagTailEnd string

	flagLevel     string
	flagSample    float64
	flagFp        []string
	flagFpExclude []string
	flagRe        []string
	flagReExclude []string

	flagNowrap   bool
	flagTierMap  string
)

var queryCommand = &cobra.Command{
	Use:    "query TIER[,TIER,...]",
	Short:  "Fan out to one or more tiers and print their logs",
	Args:   cobra.ExactArgs(1),
	PreRun: onCommandStart,
	RunE:   runQuery,
}

func init() {
	queryCommand.Flags().BoolVar(&modeSummary, "summary", true, "aggregate output into one summary per host (default)")
	queryCommand.Flags().BoolVar(&modeDetails, "details", false, "print every matching record")
	queryCommand.Flags().BoolVar(&modeFollow, "follow", false, "follow logs as they're written")

	queryCommand.Flags().StringVar(&flagStart, "start", "", "start time, \"YYYY-MM-DD HH:MM:SS\" (defaults to 1 minute ago, or to now with --follow)")
	queryCommand.Flags().StringVar(&flagEnd, "end", "", "end time, \"YYYY-MM-DD HH:MM:SS\" (defaults to now)")
	queryCommand.Flags().StringVar(&flagTail, "tail", "", "shorthand start: \"min\", \":sec\", \"min:sec\" or \"hour:min:sec\" ago")
	queryCommand.Flags().StringVar(&flagTailEnd, "tail-end", "", "shorthand end, same format as --tail")

	queryCommand.Flags().StringVar(&flagLevel, "level", "INFO", "minimum level to show")
	queryCommand.Flags().Float64Var(&flagSample, "sample", 0, "sampling rate in (0,1]; 0 disables sampling")
	queryCommand.Flags().StringSliceVar(&flagFp, "fp", nil, "only show these fingerprints (8 hex chars each)")
	queryCommand.Flags().StringSliceVar(&flagFpExclude, "fp-exclude", nil, "hide these fingerprints (8 hex chars each)")
	queryCommand.Flags().StringSliceVar(&flagRe, "re", nil, "only show records matching one of these regexes")
	queryCommand.Flags().StringSliceVar(&flagReExclude, "re-exclude", []string{`^\t`}, "hide records matching one of these regexes")

	queryCommand.Flags().BoolVar(&flagNowrap, "nowrap", false, "disable ANSI color in output")
	queryCommand.Flags().StringVar(&flagTierMap, "tier-map", "", "YAML file extending the built-in tier glob table")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if modeFollow || modeDetails {
		modeSummary = false
	}

	for _, fp := range append(append([]string{}, flagFp...), flagFpExclude...) {
		if len(fp) != 8 {
			return fmt.Errorf("invalid fingerprint %q: must be exactly 8 characters", fp)
		}
	}
	if !logaccessor.IsValidLevel(flagLevel) {
		return fmt.Errorf("invalid --level %q", flagLevel)
	}

	start, end, err := resolveWindow()
	if err != nil {
		return err
	}

	tb := tier.DefaultTable()
	if flagTierMap != "" {
		override, err := hblog.LoadTierMapOverride(flagTierMap)
		if err != nil {
			return err
		}
		tb.ApplyOverride(override.Globs, override.Equivalents)
	}

	ctx, cancel := signalContext()
	defer cancel()

	hosts, hostTier, err := resolveHosts(ctx, tb, args[0])
	if err != nil {
		return err
	}

	var samplingRate *float64
	if flagSample > 0 {
		samplingRate = &flagSample
	}

	params := fanout.RequestParams{
		SamplingRate: samplingRate,
		Levels:       logaccessor.LevelsFrom(flagLevel),
		FpInclude:    flagFp,
		FpExclude:    flagFpExclude,
		ReInclude:    flagRe,
		ReExclude:    flagReExclude,
		Start:        start,
		End:          end,
	}

	fanout.InitColorState(boolPtr(!flagNowrap), os.Stdout)

	globFor := func(host string) (string, error) {
		t, ok := hostTier[host]
		if !ok {
			return "", fmt.Errorf("no tier known for host %s", host)
		}
		return tb.GlobForTier(t)
	}

	client := fanout.NewClient(appLogger)

	if modeFollow {
		params.Mode = fanout.ModeFollow
		err := fanout.RunFollow(ctx, client, hosts, globFor, params, func(records []*logaccessor.LogRecord) {
			for _, r := range records {
				fanout.PrintRecord(os.Stdout, r)
			}
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	state := fanout.NewRoundState(hosts)
	if modeDetails {
		params.Mode = fanout.ModeDetails
	} else {
		params.Mode = fanout.ModeSummary
	}

	runErr := client.RunRound(ctx, state, globFor, func(string) (logaccessor.UniversalOffset, bool) {
		return logaccessor.UniversalOffset{}, false
	}, params)

	if state.BlacklistExhaustedRecord != nil {
		fanout.PrintRecord(os.Stdout, state.BlacklistExhaustedRecord)
	}

	if modeDetails {
		for _, r := range fanout.MergeDetails(state) {
			fanout.PrintRecord(os.Stdout, r)
		}
	} else {
		printSummary(fanout.MergeSummary(state))
		printFpMatrix(state)
	}

	if report := state.BlacklistReport(); report != nil {
		fanout.PrintRecord(os.Stdout, report)
	}

	return runErr
}

func printSummary(s *logaccessor.Summary) {
	for _, level := range logaccessor.AllLevels {
		fmt.Printf("%-6s %d\n", level, s.Level[level])
	}
	for _, fp := range s.Fp {
		fmt.Printf("%s %-6s %4d  %s\n", fp.Fp, fp.Level, fp.Count, fp.NormText)
	}
}

// printFpMatrix prints the host breakdown MergeSummary discards: one line
// per fingerprint prefix, then its count on each host that saw it.
func printFpMatrix(state *fanout.RoundState) {
	rows := fanout.BuildFpMatrix(state)
	if len(rows) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("fp       level   total  hosts")
	for _, row := range rows {
		fmt.Printf("%s  %-6s  %4d  ", row.Prefix, row.Level, row.Total)
		first := true
		for _, host := range state.InitialHostsList {
			count, ok := row.PerHost[host]
			if !ok {
				continue
			}
			if !first {
				fmt.Print(", ")
			}
			first = false
			fmt.Printf("%s=%d", host, count)
		}
		fmt.Println()
	}
}

func boolPtr(b bool) *bool { return &b }

func resolveWindow() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	switch {
	case flagTail != "":
		start, err = tailTimeFromStr(flagTail)
	case flagStart != "":
		start, err = parseFlagTime(flagStart)
	case modeFollow:
		start, err = tailTimeFromStr("0:00")
	default:
		start, err = tailTimeFromStr("1:00")
	}
	if err != nil {
		return start, end, err
	}

	switch {
	case flagTailEnd != "":
		end, err = tailTimeFromStr(flagTailEnd)
	case flagEnd != "":
		end, err = parseFlagTime(flagEnd)
	default:
		end = time.Now()
	}
	return start, end, err
}

func parseFlagTime(s string) (time.Time, error) {
	if !strings.Contains(s, " ") {
		s = time.Now().Format("2006-01-02") + " " + s
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05.000000", s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
}

// resolveHosts expands a comma-separated tier list ("tier1,tier2") into a
// flat host list and a host->tier map, shelling out to
// list_hosts_of_tier.sh for each tier.
func resolveHosts(ctx context.Context, tb *tier.Table, arg string) ([]string, map[string]string, error) {
	hostTier := make(map[string]string)
	seen := make(map[string]bool)
	var hosts []string

	for _, tierName := range strings.Split(arg, ",") {
		tierHosts, err := tb.ListHostsOfTier(ctx, tierName)
		if err != nil {
			return nil, nil, err
		}

		for _, h := range tierHosts {
			hostTier[h] = tierName
			if !seen[h] {
				seen[h] = true
				hosts = append(hosts, h)
			}
		}
	}

	return hosts, hostTier, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}
