// Package control implements the line-based TCP control protocol used
// by external scripting clients to drive macro playback. Each request
// is a single call line such as `iimPlay("login", 30000)` and each
// response is a single `CODE\tDATA` line.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/macrokit/macrokit/pkg/logging"
	"github.com/macrokit/macrokit/pkg/macro"
	"github.com/macrokit/macrokit/pkg/runtime"
)

// Response codes on the wire.
const (
	CodeOK        = 1
	CodeBusy      = 0
	CodeSyntax    = -1
	CodeNotFound  = -2
	CodePlayError = -3
	CodeTimeout   = -4
)

// Player is the playback surface the server drives. *runtime.Runtime
// satisfies it.
type Player interface {
	Play(name string, timeout time.Duration) (macro.MacroResult, error)
	SetVariable(name, value string)
	LastExtract() string
	LastError() string
	Stop()
}

// Server accepts control connections and dispatches calls to a Player.
type Server struct {
	player Player
	log    *logging.Logger

	// OnExit runs once when a client issues iimExit. Optional.
	OnExit func()
}

// NewServer builds a server around a player.
func NewServer(player Player, log *logging.Logger) *Server {
	return &Server{player: player, log: log}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or the
// listener fails. Each connection is handled on its own goroutine so a
// second client can issue iimStop while a play is in flight.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if s.log != nil {
		s.log.Debugf("control: client connected from %s", conn.RemoteAddr())
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		code, data, exit := s.handleCall(line)
		fmt.Fprintf(conn, "%d\t%s\n", code, sanitize(data))
		if exit {
			if s.OnExit != nil {
				s.OnExit()
			}
			return
		}
	}
}

// handleCall parses and dispatches one call line. The exit flag tells
// the connection loop to hang up after the response is written.
func (s *Server) handleCall(line string) (code int, data string, exit bool) {
	name, args, err := parseCall(line)
	if err != nil {
		return CodeSyntax, err.Error(), false
	}

	switch strings.ToLower(name) {
	case "iimplay":
		if len(args) < 1 || len(args) > 2 {
			return CodeSyntax, "iimPlay expects a macro name and an optional timeout", false
		}
		timeout := time.Duration(0)
		if len(args) == 2 {
			ms, err := strconv.Atoi(args[1])
			if err != nil || ms < 0 {
				return CodeSyntax, fmt.Sprintf("invalid timeout %q", args[1]), false
			}
			timeout = time.Duration(ms) * time.Millisecond
		}
		return s.play(args[0], timeout)

	case "iimset":
		if len(args) != 2 {
			return CodeSyntax, "iimSet expects a variable name and a value", false
		}
		s.player.SetVariable(normalizeVarName(args[0]), args[1])
		return CodeOK, "OK", false

	case "iimgetlastextract":
		if len(args) != 0 {
			return CodeSyntax, "iimGetLastExtract takes no arguments", false
		}
		return CodeOK, s.player.LastExtract(), false

	case "iimgetlasterror":
		if len(args) != 0 {
			return CodeSyntax, "iimGetLastError takes no arguments", false
		}
		return CodeOK, s.player.LastError(), false

	case "iimstop":
		s.player.Stop()
		return CodeOK, "OK", false

	case "iimexit":
		return CodeOK, "OK", true

	default:
		return CodeSyntax, fmt.Sprintf("unknown command %q", name), false
	}
}

func (s *Server) play(name string, timeout time.Duration) (int, string, bool) {
	result, err := s.player.Play(name, timeout)
	switch {
	case errors.Is(err, runtime.ErrBusy):
		return CodeBusy, "macro already running", false
	case errors.Is(err, runtime.ErrMacroNotFound):
		return CodeNotFound, err.Error(), false
	case errors.Is(err, runtime.ErrTimeout):
		return CodeTimeout, "macro timed out", false
	case err != nil:
		return CodePlayError, err.Error(), false
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = result.Code.String()
		}
		return CodePlayError, msg, false
	}
	return CodeOK, "OK", false
}

// normalizeVarName maps client-side variable spellings onto store
// names: "-var_NAME" and "var_NAME" address user variable NAME, "varN"
// addresses the built-in !VARN, anything else is passed through.
func normalizeVarName(name string) string {
	n := strings.TrimPrefix(name, "-")
	lower := strings.ToLower(n)
	if rest, ok := strings.CutPrefix(lower, "var_"); ok {
		return n[len(n)-len(rest):]
	}
	if rest, ok := strings.CutPrefix(lower, "var"); ok && rest != "" {
		if _, err := strconv.Atoi(rest); err == nil {
			return "!VAR" + rest
		}
	}
	return n
}

// sanitize keeps response payloads single-line and tab-free so they
// cannot break the CODE\tDATA framing.
func sanitize(data string) string {
	data = strings.ReplaceAll(data, "\t", " ")
	data = strings.ReplaceAll(data, "\r\n", " ")
	data = strings.ReplaceAll(data, "\n", " ")
	return strings.ReplaceAll(data, "\r", " ")
}
