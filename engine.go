// Package xmilesim contains a CLI-driven engine for loading an XMILE model
// and interacting with its simulation from an input stream and an output
// stream.
package xmilesim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/xmilesim/internal/config"
	"github.com/dekarrin/xmilesim/internal/input"
	"github.com/dekarrin/xmilesim/internal/sim"
	"github.com/dekarrin/xmilesim/internal/util"
	"github.com/dekarrin/xmilesim/internal/xmile"
)

const consoleOutputWidth = 80

// commandReader is implemented by both of internal/input's reader types.
type commandReader interface {
	ReadCommand() (string, error)
	AllowBlank(bool)
	Close() error
}

// Engine runs an interactive read-eval-print loop over a compiled simulation:
// commands set variable overrides, run the model, and inspect resulting time
// series.
type Engine struct {
	sim         *sim.Sim
	in          commandReader
	out         *bufio.Writer
	forceDirect bool
	running     bool
	hasRun      bool
}

// New creates a new Engine ready to operate on the given input and output
// streams. modelFilePath is parsed as an XMILE document and topModel is
// compiled from it; if topModel is empty, the document's first model is used.
// overrides, if non-nil, replaces the document's own dt/savestep with the
// given non-zero fields before the model is compiled.
//
// If nil is given for the input stream, a bufio.Reader is opened on stdin. If
// nil is given for the output stream, a bufio.Writer is opened on stdout.
func New(inputStream io.Reader, outputStream io.Writer, modelFilePath string, topModel string, forceDirectInput bool, overrides *config.Overrides) (*Engine, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}

	f, err := os.Open(modelFilePath)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	project, err := xmile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}

	if overrides != nil {
		applyOverrides(project, *overrides)
	}

	if topModel == "" {
		if len(project.Files) < 1 || len(project.Files[0].Models) < 1 {
			return nil, fmt.Errorf("model file %q defines no models", modelFilePath)
		}
		topModel = project.Files[0].Models[0].Name
	}

	s, err := sim.New(project, topModel)
	if err != nil {
		return nil, fmt.Errorf("compile model %q: %w", topModel, err)
	}

	eng := &Engine{
		sim:         s,
		out:         bufio.NewWriter(outputStream),
		running:     false,
		forceDirect: forceDirectInput,
	}

	useReadline := !forceDirectInput && inputStream == os.Stdin && outputStream == os.Stdout
	if useReadline {
		eng.in, err = input.NewInteractiveReader()
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		eng.in = input.NewDirectReader(inputStream)
	}

	return eng, nil
}

// applyOverrides replaces the dt/savestep of every file's sim_specs with the
// non-zero fields of o.
func applyOverrides(project *sim.Project, o config.Overrides) {
	for i := range project.Files {
		if o.Dt != 0 {
			project.Files[i].SimSpecs.DT = o.Dt
		}
		if o.SaveStep != 0 {
			project.Files[i].SimSpecs.SaveStep = o.SaveStep
		}
	}
}

// Close closes all resources associated with the Engine, including any
// readline-related resources created for interactive mode.
func (eng *Engine) Close() error {
	if eng.running {
		return fmt.Errorf("cannot close a running engine")
	}

	if err := eng.in.Close(); err != nil {
		return fmt.Errorf("close command reader: %w", err)
	}
	return nil
}

func (eng *Engine) writeln(format string, a ...interface{}) error {
	msg := rosed.Edit(fmt.Sprintf(format, a...)).Wrap(consoleOutputWidth).String()
	if _, err := eng.out.WriteString(msg + "\n"); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	return eng.out.Flush()
}

// RunUntilQuit begins reading commands from the streams and applying them to
// the simulation until the QUIT command is received. startCommands, if
// non-empty, are run in order before control is handed to the input stream.
func (eng *Engine) RunUntilQuit(startCommands []string) error {
	introMsg := "xmilesim interactive session"
	if eng.forceDirect {
		introMsg += " (direct input mode)"
	}
	introMsg += "\n=============================\n"
	introMsg += fmt.Sprintf("Loaded model with %d variables. Type HELP for commands.\n", len(eng.sim.VarNames()))

	if _, err := eng.out.WriteString(introMsg); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := eng.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}

	eng.running = true
	defer func() {
		eng.running = false
	}()

	for _, c := range startCommands {
		if !eng.running {
			break
		}
		if err := eng.dispatch(c); err != nil {
			return err
		}
	}

	eng.in.AllowBlank(false)
	for eng.running {
		line, err := eng.in.ReadCommand()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("get user command: %w", err)
		}

		if err := eng.dispatch(line); err != nil {
			return err
		}
	}

	return eng.writeln("Goodbye")
}

// dispatch parses and executes a single command line.
func (eng *Engine) dispatch(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	verb := strings.ToUpper(fields[0])
	args := fields[1:]

	switch verb {
	case "QUIT", "EXIT":
		eng.running = false
		return nil
	case "HELP":
		return eng.writeln(helpText)
	case "RUN":
		eng.sim.RunToEnd()
		eng.hasRun = true
		return eng.writeln("Ran model to end of simulation spec.")
	case "SET":
		return eng.cmdSet(args)
	case "GET":
		return eng.cmdGet(args)
	case "LIST":
		return eng.cmdList()
	case "SERIES":
		return eng.cmdSeries(args)
	default:
		return eng.writeln("Unrecognized command %q. Type HELP for a list of commands.", fields[0])
	}
}

func (eng *Engine) cmdSet(args []string) error {
	if len(args) != 2 {
		return eng.writeln("SET requires a variable name and a value")
	}
	val, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return eng.writeln("%q is not a valid number", args[1])
	}
	if err := eng.sim.SetValue(args[0], val); err != nil {
		return eng.writeln("%s", err.Error())
	}
	return eng.writeln("%s = %g", args[0], val)
}

func (eng *Engine) cmdGet(args []string) error {
	if len(args) != 1 {
		return eng.writeln("GET requires a variable name")
	}
	val, err := eng.sim.GetValue(args[0])
	if err != nil {
		return eng.writeln("%s", err.Error())
	}
	return eng.writeln("%s = %g", args[0], val)
}

func (eng *Engine) cmdList() error {
	names := eng.sim.VarNames()
	return eng.writeln(util.MakeTextList(names))
}

func (eng *Engine) cmdSeries(args []string) error {
	if len(args) != 1 {
		return eng.writeln("SERIES requires a variable name")
	}
	if !eng.hasRun {
		return eng.writeln("model has not been run yet; run RUN first")
	}
	series, err := eng.sim.GetSeries(args[0])
	if err != nil {
		return eng.writeln("%s", err.Error())
	}

	parts := make([]string, len(series))
	for i, v := range series {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return eng.writeln("%s", strings.Join(parts, ", "))
}

const helpText = `Commands:
  RUN               run the model to the end of its simulation spec
  SET VAR VALUE     override VAR to VALUE for the next run
  GET VAR           print the current value of VAR
  LIST              list all variable names in the compiled model
  SERIES VAR        print the full saved time series for VAR (after RUN)
  QUIT              exit the session`
