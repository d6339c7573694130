package fanout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/bascanada/hblog/pkg/logaccessor"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// colorState gates ANSI output the same way the original tool's printer
// did: an explicit setting wins, then NO_COLOR, then TTY detection.
type colorState struct{ enabled bool }

var globalColorState = &colorState{}

// InitColorState configures whether PrintRecord emits ANSI color.
// explicitSetting, if non-nil, always wins (the CLI's --nowrap flag);
// otherwise NO_COLOR and TTY auto-detection apply in that order.
func InitColorState(explicitSetting *bool, writer io.Writer) {
	if explicitSetting != nil {
		color.NoColor = !*explicitSetting
		globalColorState.enabled = *explicitSetting
		return
	}
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		globalColorState.enabled = false
		return
	}
	if f, ok := writer.(*os.File); ok {
		globalColorState.enabled = isatty.IsTerminal(f.Fd())
		color.NoColor = !globalColorState.enabled
		return
	}
	color.NoColor = true
	globalColorState.enabled = false
}

// IsColorEnabled reports whether color output is currently enabled.
func IsColorEnabled() bool {
	return globalColorState.enabled
}

// colorLevel highlights WARN/ERROR-family levels, including the
// synthetic BLACKL01/BLACKL02 records, the way a terminal fan-out
// client draws operators' attention to blacklisting.
func colorLevel(level string) string {
	if !IsColorEnabled() {
		return level
	}
	switch level {
	case "ERROR", "FATAL":
		return color.RedString(level)
	case "WARN":
		return color.YellowString(level)
	default:
		return level
	}
}

// PrintRecord writes one record in the client's plain-text wire format,
// "<ts> <host> <level> <text>", coloring the level when enabled.
func PrintRecord(w io.Writer, r *logaccessor.LogRecord) {
	host := r.Host
	if host == "" {
		host = "-"
	}
	fmt.Fprintf(w, "%s %s %s %s\n", r.Ts, host, colorLevel(r.Level), r.Text)
}

// PrintDebugEnvelope pretty-prints an envelope as colorized JSON, showing
// exactly what crossed the wire. No command in cmd/ calls it.
func PrintDebugEnvelope(w io.Writer, env logaccessor.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		fmt.Fprintf(w, "<unprintable envelope: %v>\n", err)
		return
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		fmt.Fprintln(w, string(raw))
		return
	}
	f := colorjson.NewFormatter()
	f.Indent = 2
	pretty, err := f.Marshal(obj)
	if err != nil {
		fmt.Fprintln(w, string(raw))
		return
	}
	fmt.Fprintln(w, string(pretty))
}
