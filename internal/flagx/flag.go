// Package flagx lets independent config loaders pick their own flags out of
// os.Args without tripping over each other's unknown-flag errors.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the subset of args that belong to allowedFlags, keeping
// flag values that follow as a separate argument. Both "-f value" and
// "-f=value" forms are recognized. The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// StringFlag extracts the value of a string flag known under any of names
// (e.g. "c" and "config") from args. The last occurrence wins; an absent
// flag yields "".
func StringFlag(args []string, names ...string) string {
	dashed := make([]string, 0, len(names))
	for _, n := range names {
		dashed = append(dashed, "-"+n)
	}

	var value string
	fs := flag.NewFlagSet("flagx", flag.ContinueOnError)
	fs.SetOutput(discard{})
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
	}
	_ = fs.Parse(FilterArgs(args, dashed))

	return value
}

// ConfigFileFlag returns the JSON config path given with -c or -config.
func ConfigFileFlag(args []string) string {
	return StringFlag(args, "c", "config")
}

// EnvFileFlag returns the dotenv path given with -env.
func EnvFileFlag(args []string) string {
	return StringFlag(args, "env")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
