package config

import (
	"flag"
	"fmt"
	"io"
)

// parseCLIFlags parses command-line flags into a FlagSource
func parseCLIFlags(args []string) (*FlagSource, Options, error) {
	flagSource := NewFlagSource()
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Define CLI flags
	primaryURL := fs.String(FlagPrimaryURL, "", HelpPrimaryURL)
	replicaURL := fs.String(FlagReplicaURL, "", HelpReplicaURL)
	probeTimeoutMs := fs.Int(FlagProbeTimeoutMs, 0, HelpProbeTimeoutMs)
	reconnectAttempts := fs.Int(FlagReconnectAttempts, 0, HelpReconnectAttempts)
	reconnectBackoffMs := fs.Int(FlagReconnectBackoffMs, -1, HelpReconnectBackoffMs)
	statusIntervalSeconds := fs.Int(FlagStatusIntervalSeconds, 0, HelpStatusIntervalSeconds)
	metricsAddr := fs.String(FlagMetricsAddr, "", HelpMetricsAddr)
	configFile := fs.String(FlagConfigFile, "", HelpConfigFile)
	version := fs.Bool(FlagVersion, false, HelpShowVersion)
	help := fs.Bool(FlagHelp, false, HelpShowHelp)

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return flagSource, Options{ShowHelp: true}, nil
		}
		return nil, Options{}, err
	}

	opts := Options{ShowHelp: *help, ShowVersion: *version}
	if opts.ShowHelp || opts.ShowVersion {
		return flagSource, opts, nil
	}

	// Store non-zero/non-empty values in flag source
	if *primaryURL != "" {
		flagSource.Set(KeyPrimaryURL, *primaryURL)
	}
	if *replicaURL != "" {
		flagSource.Set(KeyReplicaURL, *replicaURL)
	}
	if *probeTimeoutMs != 0 {
		flagSource.Set(KeyProbeTimeoutMs, *probeTimeoutMs)
	}
	if *reconnectAttempts != 0 {
		flagSource.Set(KeyReconnectAttempts, *reconnectAttempts)
	}
	// zero is a meaningful backoff, so unset is -1
	if *reconnectBackoffMs != -1 {
		flagSource.Set(KeyReconnectBackoffMs, *reconnectBackoffMs)
	}
	if *statusIntervalSeconds != 0 {
		flagSource.Set(KeyStatusIntervalSeconds, *statusIntervalSeconds)
	}
	if *metricsAddr != "" {
		flagSource.Set(KeyMetricsAddr, *metricsAddr)
	}
	if *configFile != "" {
		flagSource.Set(KeyConfigFile, *configFile)
	}

	return flagSource, opts, nil
}

// PrintUsage prints the usage message to w
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "%s - %s\n", AppName, AppDescription)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", HelpUsage)
	fmt.Fprintf(w, "  %s\n", UsageFormat)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", HelpOptions)
	fmt.Fprintf(w, "  --%-26s %s (default: %s)\n", FlagPrimaryURL+" string", HelpPrimaryURL, DefaultPrimaryURL)
	fmt.Fprintf(w, "  --%-26s %s (default: %s)\n", FlagReplicaURL+" string", HelpReplicaURL, DefaultReplicaURL)
	fmt.Fprintf(w, "  --%-26s %s (default: %d)\n", FlagProbeTimeoutMs+" int", HelpProbeTimeoutMs, DefaultProbeTimeoutMs)
	fmt.Fprintf(w, "  --%-26s %s (default: %d)\n", FlagReconnectAttempts+" int", HelpReconnectAttempts, DefaultReconnectAttempts)
	fmt.Fprintf(w, "  --%-26s %s (default: %d)\n", FlagReconnectBackoffMs+" int", HelpReconnectBackoffMs, DefaultReconnectBackoffMs)
	fmt.Fprintf(w, "  --%-26s %s (default: %d)\n", FlagStatusIntervalSeconds+" int", HelpStatusIntervalSeconds, DefaultStatusIntervalSeconds)
	fmt.Fprintf(w, "  --%-26s %s\n", FlagMetricsAddr+" string", HelpMetricsAddr)
	fmt.Fprintf(w, "  --%-26s %s\n", FlagConfigFile+" string", HelpConfigFile)
	fmt.Fprintf(w, "  --%-26s %s\n", FlagVersion, HelpShowVersion)
	fmt.Fprintf(w, "  --%-26s %s\n", FlagHelp, HelpShowHelp)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", HelpEnvironmentVars)
	fmt.Fprintf(w, "  %-26s %s\n", KeyPrimaryURL, EnvDescPrimaryURL)
	fmt.Fprintf(w, "  %-26s %s\n", KeyReplicaURL, EnvDescReplicaURL)
	fmt.Fprintf(w, "  %-26s %s\n", KeyProbeTimeoutMs, EnvDescProbeTimeoutMs)
	fmt.Fprintf(w, "  %-26s %s\n", KeyReconnectAttempts, EnvDescReconnectAttempts)
	fmt.Fprintf(w, "  %-26s %s\n", KeyReconnectBackoffMs, EnvDescReconnectBackoffMs)
	fmt.Fprintf(w, "  %-26s %s\n", KeyStatusIntervalSeconds, EnvDescStatusIntervalSeconds)
	fmt.Fprintf(w, "  %-26s %s\n", KeyMetricsAddr, EnvDescMetricsAddr)
	fmt.Fprintf(w, "  %-26s %s\n", KeyConfigFile, EnvDescConfigFile)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", HelpNote)
}
