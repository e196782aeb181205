// Package permission implements the declarative capability model for
// sandboxed plugins. A Permission is a value-comparable grant; Set holds the
// grants for one sandbox and answers coverage queries on every host call.
package permission

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind discriminates permission variants.
type Kind string

const (
	KindReadPath  Kind = "read_path"
	KindWritePath Kind = "write_path"
	KindEnv       Kind = "env"
	KindAllEnv    Kind = "all_env"
	KindNetwork   Kind = "network"
	KindExecute   Kind = "execute"
	KindTime      Kind = "time"
	KindRandom    Kind = "random"
)

// Permission is a single capability grant or request. The zero value is not
// a valid permission. Permissions are immutable, comparable, and usable as
// map keys.
type Permission struct {
	Kind Kind `json:"type"`

	// Path for read_path/write_path. Stored cleaned; canonicalisation
	// happens at coverage-check time so grants written before their target
	// exists still work.
	Path string `json:"path,omitempty"`

	// Name for env.
	Name string `json:"name,omitempty"`

	// Host and Port for network. Port 0 means any port.
	Host string `json:"host,omitempty"`
	Port uint16 `json:"port,omitempty"`

	// Command for execute.
	Command string `json:"command,omitempty"`
}

// ReadPath grants read access to path and everything beneath it.
func ReadPath(path string) Permission {
	return Permission{Kind: KindReadPath, Path: filepath.Clean(path)}
}

// WritePath grants write access to path and everything beneath it.
func WritePath(path string) Permission {
	return Permission{Kind: KindWritePath, Path: filepath.Clean(path)}
}

// Env grants access to one environment variable.
func Env(name string) Permission {
	return Permission{Kind: KindEnv, Name: name}
}

// AllEnv grants access to every environment variable.
func AllEnv() Permission {
	return Permission{Kind: KindAllEnv}
}

// Network grants access to host. Port 0 covers any port on that host.
func Network(host string, port uint16) Permission {
	return Permission{Kind: KindNetwork, Host: host, Port: port}
}

// Execute grants execution of one external command.
func Execute(command string) Permission {
	return Permission{Kind: KindExecute, Command: command}
}

// Time grants access to the current time.
func Time() Permission { return Permission{Kind: KindTime} }

// Random grants access to random/UUID generation.
func Random() Permission { return Permission{Kind: KindRandom} }

// Covers reports whether the granted permission p authorises requested.
// The relation is reflexive. read_path/write_path extend along directory
// prefixes after canonicalisation, all_env covers any env, and a network
// grant without a port covers any port on the same host. Everything else
// requires structural equality.
func (p Permission) Covers(requested Permission) bool {
	if p == requested {
		return true
	}

	switch {
	case p.Kind == KindReadPath && requested.Kind == KindReadPath:
		return pathCovers(p.Path, requested.Path)
	case p.Kind == KindWritePath && requested.Kind == KindWritePath:
		return pathCovers(p.Path, requested.Path)
	case p.Kind == KindAllEnv && requested.Kind == KindEnv:
		return true
	case p.Kind == KindNetwork && requested.Kind == KindNetwork && p.Port == 0:
		return p.Host == requested.Host
	}
	return false
}

// Describe renders the permission for diagnostics and denial responses.
// Paths are rendered as requested, never resolved, so a denial cannot
// confirm anything about the filesystem.
func (p Permission) Describe() string {
	switch p.Kind {
	case KindReadPath:
		return "read " + p.Path
	case KindWritePath:
		return "write " + p.Path
	case KindEnv:
		return "env $" + p.Name
	case KindAllEnv:
		return "all environment variables"
	case KindNetwork:
		if p.Port != 0 {
			return fmt.Sprintf("network %s:%d", p.Host, p.Port)
		}
		return "network " + p.Host
	case KindExecute:
		return "execute " + p.Command
	case KindTime:
		return "current time"
	case KindRandom:
		return "random/UUID generation"
	}
	return string(p.Kind)
}

// pathCovers reports whether requested equals granted or lies beneath it,
// comparing canonicalised forms.
func pathCovers(granted, requested string) bool {
	g := Canonicalize(granted)
	r := Canonicalize(requested)
	if r == g {
		return true
	}
	return strings.HasPrefix(r, g+string(filepath.Separator))
}

// Canonicalize resolves path to an absolute, symlink-free form. Paths that
// do not (yet) exist resolve through their nearest existing ancestor, so a
// write grant for a directory covers files that will be created inside it.
// If nothing along the path exists the cleaned absolute path is used as-is;
// callers must treat that literal form as the comparison key.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}

	// Resolve the deepest existing ancestor and re-append the rest.
	dir, rest := abs, ""
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest)
		}
	}
	return abs
}
