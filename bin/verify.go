package main

import (
	humanize "github.com/dustin/go-humanize"

	kingpin "github.com/alecthomas/kingpin/v2"

	"www.velocidex.com/golang/packrat/logging"
	"www.velocidex.com/golang/packrat/packager"
)

var (
	verify_command = app.Command(
		"verify", "Re-verify a built package against its manifest.")

	verify_command_path = verify_command.Arg(
		"package", "Path to the package directory.").Required().String()
)

func doVerify() {
	config_obj := get_config_or_default()
	logger := logging.GetLogger(config_obj, &logging.PackagerComponent)

	manifest, err := packager.VerifyPackage(*verify_command_path)
	kingpin.FatalIfError(err, "Package verification failed.")

	logger.Info("Package %v OK: %v artifacts, %v tools, %v, fingerprint %v",
		*verify_command_path, len(manifest.Artifacts),
		len(manifest.Tools),
		humanize.Bytes(uint64(manifest.TotalSize)),
		manifest.Fingerprint)
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case verify_command.FullCommand():
			doVerify()

		default:
			return false
		}
		return true
	})
}
