/*
Xmilesim starts an interactive xmilesim session.

It reads in an XMILE model file and compiles the named top-level model (or
the document's first model, if none is given), then starts an interactive
session for running the simulation and inspecting results. The interpreter
prints results to stdout and reads commands from stdin until "QUIT" is
entered.

Usage:

	xmilesim [flags] MODEL_FILE

The flags are:

	-v, --version
		Give the current version of xmilesim and then exit.

	-m, --model NAME
		Compile the model named NAME from the document. Defaults to the
		document's first defined model.

	-d, --direct
		Force reading directly from the console as opposed to using GNU
		readline based routines for reading command input even if launched
		in a tty with stdin and stdout.

	-c, --command COMMANDS
		Immediately run the given command(s) at start. Can be multiple
		commands separated by the ";" character.

	--config FILE
		Load named model paths and default sim-spec overrides from the given
		TOML config file. If given, MODEL_FILE may be a name defined in the
		config's [models] table instead of a path.

Once a session has started, type HELP for a list of available commands. To
exit the interpreter, type "QUIT".
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dekarrin/xmilesim"
	"github.com/dekarrin/xmilesim/internal/config"
	"github.com/dekarrin/xmilesim/internal/version"
	"github.com/spf13/pflag"
)

const (
	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitRunError indicates an unsuccessful program execution due to a
	// problem while running the session.
	ExitRunError

	// ExitInitError indicates an unsuccessful program execution due to an
	// issue initializing the engine.
	ExitInitError
)

var (
	returnCode   int     = ExitSuccess
	flagVersion  *bool   = pflag.BoolP("version", "v", false, "Gives the version info")
	modelName    *string = pflag.StringP("model", "m", "", "The name of the model to compile from the document")
	forceDirect  *bool   = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of going through GNU readline where possible")
	startCommand *string = pflag.StringP("command", "c", "", "Execute the given commands immediately at start and leave the interpreter open")
	configFile   *string = pflag.String("config", "", "Load named model paths and default overrides from the given TOML config file")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occured: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: no model file given\nDo -h for help.\n")
		returnCode = ExitInitError
		return
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "ERROR: too many arguments\nDo -h for help.\n")
		returnCode = ExitInitError
		return
	}

	var startCommands []string
	if *startCommand != "" {
		startCommands = strings.Split(*startCommand, ";")
	}

	modelFile := args[0]
	var overrides *config.Overrides
	if *configFile != "" {
		cfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		modelFile = cfg.ResolveModel(modelFile)
		overrides = &cfg.Overrides
	}

	eng, initErr := xmilesim.New(os.Stdin, os.Stdout, modelFile, *modelName, *forceDirect, overrides)
	if initErr != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", initErr.Error())
		returnCode = ExitInitError
		return
	}
	defer eng.Close()

	if err := eng.RunUntilQuit(startCommands); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRunError
		return
	}
}
