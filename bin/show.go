package main

import (
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"

	kingpin "github.com/alecthomas/kingpin/v2"

	"www.velocidex.com/golang/packrat/inventory"
)

var (
	show_command = app.Command(
		"show", "List the parsed artifacts and the tools they need.")
)

func doShow() {
	config_obj := get_config_or_default()
	repository := getRepository(config_obj)

	resolver, err := inventory.NewResolver(repository)
	kingpin.FatalIfError(err, "Artifact definitions are inconsistent.")

	for _, name := range repository.List() {
		artifact, pres := repository.Get(name)
		if !pres {
			continue
		}

		fmt.Fprintf(os.Stdout, "%v (%v)\n", artifact.Name, artifact.Type)
		for _, tool := range artifact.Tools {
			size := "size unknown"
			if tool.Size > 0 {
				size = humanize.Bytes(uint64(tool.Size))
			}
			fmt.Fprintf(os.Stdout, "  tool %v sha256:%v (%v)\n",
				tool.Name, tool.ExpectedHash, size)
		}
	}

	index := resolver.Index()
	fmt.Fprintf(os.Stdout, "\n%v distinct tools indexed\n",
		len(index.List()))
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case show_command.FullCommand():
			doShow()

		default:
			return false
		}
		return true
	})
}
