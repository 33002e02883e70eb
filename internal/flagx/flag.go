// Package flagx lets several config loaders share os.Args. Each loader
// picks out the flags it owns with FilterArgs before handing them to its
// own flag.FlagSet, so unknown flags of another loader never fail a parse.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the allowed flags in args together with their values.
// An allowed "-name" matches "-name", "--name", "-name=value" and
// "--name=value". A separate value is taken when the next argument does not
// start with "-". Scanning stops at the "--" terminator.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[strings.TrimLeft(f, "-")] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if _, ok := allowed[name]; !ok || name == "" {
			continue
		}

		filtered = append(filtered, arg)
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFile returns the JSON config path given with -c or -config. When
// neither flag is present it falls back to the environment variable env,
// which may be empty to disable the fallback.
func ConfigFile(env string) string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	if config == "" && env != "" {
		config = os.Getenv(env)
	}
	return config
}
