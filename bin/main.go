/*
   Packrat - Offline collection packager
   Copyright (C) 2026 Velocidex Innovations.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package main

import (
	"context"
	"os"
	"os/signal"

	kingpin "github.com/alecthomas/kingpin/v2"

	"www.velocidex.com/golang/packrat/artifacts"
	"www.velocidex.com/golang/packrat/config"
	"www.velocidex.com/golang/packrat/logging"
)

type CommandHandler func(command string) bool

var (
	app = kingpin.New("packrat",
		"Offline collection packager for forensic artifacts.")

	config_path = app.Flag("config", "The configuration file.").Short('c').
			Envar("PACKRAT_CONFIG").String()

	artifact_definitions_dirs = app.Flag(
		"definitions", "A directory containing artifact definitions").
		Short('d').Strings()

	verbose_flag = app.Flag(
		"verbose", "Enable verbose logging.").Short('v').
		Default("false").Bool()

	command_handlers []CommandHandler
)

func get_config_or_default() *config.Config {
	if *config_path != "" {
		config_obj, err := config.LoadConfig(*config_path)
		kingpin.FatalIfError(err, "Unable to load config.")
		if *verbose_flag {
			config_obj.Logging.Debug = true
		}
		return config_obj
	}

	config_obj := config.GetDefaultConfig()
	if *verbose_flag {
		config_obj.Logging.Debug = true
	}
	return config_obj
}

func getRepository(config_obj *config.Config) *artifacts.Repository {
	repository := artifacts.NewRepository()

	if len(*artifact_definitions_dirs) == 0 {
		kingpin.Fatalf("No artifact definitions given - use --definitions.")
	}

	logger := logging.GetLogger(config_obj, &logging.GenericComponent)
	for _, dirname := range *artifact_definitions_dirs {
		count, err := repository.LoadDirectory(dirname)
		kingpin.FatalIfError(err, "Unable to load artifacts from %v", dirname)
		logger.Info("Loaded %v artifact definitions from %v", count, dirname)
	}

	return repository
}

func install_sig_handler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func main() {
	app.HelpFlag.Short('h')
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	for _, command_handler := range command_handlers {
		if command_handler(command) {
			return
		}
	}

	kingpin.Fatalf("Unknown command %v", command)
}
