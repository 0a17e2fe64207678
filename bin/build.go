package main

import (
	"fmt"
	"os"
	"sort"

	kingpin "github.com/alecthomas/kingpin/v2"

	"www.velocidex.com/golang/packrat/engine"
	"www.velocidex.com/golang/packrat/logging"
)

var (
	build_command = app.Command(
		"build", "Build an offline collection package.")

	build_command_output = build_command.Flag(
		"output", "Directory to write the package into.").
		Short('o').Required().String()

	build_command_best_effort = build_command.Flag(
		"best_effort", "Continue past tool failures and package what we can.").
		Bool()

	build_command_parameters = build_command.Flag(
		"parameters", "Parameters to set for the artifacts.").
		Short('p').StringMap()

	build_command_names = build_command.Arg(
		"names", "A list of artifacts to package.").Required().Strings()
)

func doBuild() {
	config_obj := get_config_or_default()
	repository := getRepository(config_obj)

	ctx, cancel := install_sig_handler()
	defer cancel()

	logger := logging.GetLogger(config_obj, &logging.GenericComponent)

	eng, err := engine.NewEngine(config_obj, repository)
	kingpin.FatalIfError(err, "Unable to initialize the tool cache.")

	response, err := eng.Build(ctx, &engine.BuildRequest{
		Artifacts:  *build_command_names,
		OutputPath: *build_command_output,
		BestEffort: *build_command_best_effort,
		Parameters: *build_command_parameters,
	})
	if err != nil {
		reportFailures(response)
		kingpin.Fatalf("Build failed: %v", err)
	}

	reportFailures(response)

	logger.Info("Manifest written to %v (fingerprint %v)",
		response.ManifestPath, response.Fingerprint)

	if response.Status == engine.BuildPartial {
		// Partial success gets its own exit status so calling
		// scripts can tell it apart.
		os.Exit(2)
	}
}

func reportFailures(response *engine.BuildResponse) {
	if response == nil {
		return
	}

	names := []string{}
	for name := range response.Failed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(os.Stderr, "tool %v: %v\n", name, response.Failed[name])
	}

	for _, name := range response.DroppedArtifacts {
		fmt.Fprintf(os.Stderr, "artifact %v: dropped (required tool failed)\n",
			name)
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case build_command.FullCommand():
			doBuild()

		default:
			return false
		}
		return true
	})
}
