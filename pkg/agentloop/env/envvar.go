package env

import (
	"os"
	"path/filepath"
	"strings"
)

// Policy controls which environment variables a shell command inherits.
type Policy string

const (
	// InheritCore filters sensitive variables and keeps everything else.
	InheritCore Policy = "inherit_core"
	// InheritAll passes the process environment through unfiltered.
	InheritAll Policy = "inherit_all"
	// InheritNone keeps only alwaysInclude names.
	InheritNone Policy = "inherit_none"
)

var sensitivePatterns = []string{
	"*_API_KEY", "*_SECRET", "*_TOKEN", "*_PASSWORD", "*_CREDENTIAL",
}

var alwaysInclude = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true, "LANG": true,
	"TERM": true, "TMPDIR": true, "GOPATH": true, "CARGO_HOME": true,
	"NVM_DIR": true, "PYTHONPATH": true, "VIRTUAL_ENV": true,
	"PYENV_ROOT": true, "RBENV_ROOT": true, "RUSTUP_HOME": true,
}

func isSensitive(name string) bool {
	upper := strings.ToUpper(name)
	for _, pat := range sensitivePatterns {
		if ok, _ := filepath.Match(pat, upper); ok {
			return true
		}
	}
	return false
}

func filterEnv(policy Policy, extra map[string]string) []string {
	base := os.Environ()
	merged := make(map[string]string, len(base))

	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch policy {
		case InheritAll:
			merged[k] = v
		case InheritNone:
			if alwaysInclude[k] {
				merged[k] = v
			}
		default: // InheritCore
			if !isSensitive(k) {
				merged[k] = v
			}
		}
	}
	for k, v := range extra {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}
