package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/macrokit/macrokit/pkg/logging"
	"github.com/macrokit/macrokit/pkg/runtime"
)

func runPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	loop := fs.Int("loop", 1, "number of whole-macro loop passes")
	timeoutSec := fs.Float64("timeout", 0, "overall play budget in seconds (0 = none)")
	headful := fs.Bool("headful", false, "show the browser window")
	cfg, rest, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("play expects exactly one macro name or file")
	}
	if *headful {
		cfg.Headless = false
	}

	logger, _ := logging.NewLogger("player")
	rt, cleanup, err := buildRuntime(cfg, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := time.Duration(*timeoutSec * float64(time.Second))

	// A path that exists on disk plays directly; anything else resolves
	// through the macro store.
	name := rest[0]
	source, err := readMacroArg(rt, name)
	if err != nil {
		return err
	}

	result, err := rt.PlaySource(source, 1, *loop, timeout)
	if err != nil {
		return err
	}
	printResult(result)
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func readMacroArg(rt *runtime.Runtime, name string) (string, error) {
	if data, err := os.ReadFile(name); err == nil {
		return string(data), nil
	}
	source, err := rt.Store().Load(name)
	if err != nil {
		return "", fmt.Errorf("macro %q not found on disk or in the store", name)
	}
	return source, nil
}
