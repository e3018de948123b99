package webserver

import (
	"sort"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/prepwise/website-e2e/config"
)

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b *commandBuilder) addRaw(args ...string) {
	*b = append(*b, args...)
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// commandLine renders the command that is spawned for ws in a form that can be pasted
// into a shell.
func commandLine(ws config.WebServer) string {
	var b commandBuilder
	if ws.Dir != "" {
		b.addRaw("cd")
		b.add(ws.Dir)
		b.addRaw("&&")
	}
	keys := make([]string, 0, len(ws.Env))
	for k := range ws.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.addRaw(k + "=" + shellescape.Quote(ws.Env[k]))
	}
	b.addRaw("sh", "-c")
	b.add(ws.Command)
	return b.String()
}

func envList(vars map[string]string) []string {
	ret := make([]string, 0, len(vars))
	for k, v := range vars {
		ret = append(ret, k+"="+v)
	}
	sort.Strings(ret)
	return ret
}
