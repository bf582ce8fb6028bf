package runner

import (
	"strings"
	"time"
)

// Command describes one external invocation.
type Command struct {
	// Args is the argv. With Shell set the arguments are joined and handed
	// to /bin/sh -c, so pipelines and redirections work.
	Args          []string
	Shell         bool
	Message       string
	Timeout       time.Duration
	ExpectFailure bool
	// QuietStdout keeps stdout out of the invocation log.
	QuietStdout bool
}

// String renders the command line, quoting arguments that contain spaces
// so the same text can be fed to a tool reading commands from stdin.
func (c Command) String() string {
	if c.Shell {
		return strings.Join(c.Args, " ")
	}
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = quoteArg(a)
	}
	return strings.Join(parts, " ")
}

// quoteArg wraps the value half of key=value in double quotes when it
// holds whitespace: cdb=85 08 0e becomes cdb="85 08 0e".
func quoteArg(a string) string {
	if !strings.ContainsAny(a, " \t") || strings.ContainsAny(a, `"'`) {
		return a
	}
	if k, v, ok := strings.Cut(a, "="); ok {
		return k + `="` + v + `"`
	}
	return `"` + a + `"`
}

// Result is what a finished command produced.
type Result struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// OK reports a zero exit status with output to parse.
func (r Result) OK() bool {
	return r.ExitCode == 0 && strings.TrimSpace(r.Stdout) != ""
}
