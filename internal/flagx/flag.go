// Package flagx lets several independent flag sets share os.Args by
// filtering the arguments each of them understands.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnvVar = "MINDSHIFT_CONFIG"

// FilterArgs returns the subset of args that belongs to the given flags.
//
// Valued flags may appear as "-f value" or "-f=value"; switches appear alone
// ("-debug") or with an explicit boolean ("-debug=false") and never consume
// the following argument.
func FilterArgs(args []string, valued []string, switches ...string) []string {
	takesValue := make(map[string]bool, len(valued)+len(switches))
	for _, f := range valued {
		takesValue[f] = true
	}
	for _, f := range switches {
		takesValue[f] = false
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(arg, "=")
		valueFlag, known := takesValue[name]
		if !known {
			continue
		}

		filtered = append(filtered, arg)
		if hasValue || !valueFlag {
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config file path from -c/-config, falling
// back to $MINDSHIFT_CONFIG. It returns "" when neither is set.
func ConfigPath() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config", "--config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	return path
}
