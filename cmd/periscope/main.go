package main

import (
	"fmt"
	"os"
	"time"

	"github.com/periscope-sim/periscope/pkg/config"
	"github.com/periscope-sim/periscope/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Version bool `help:"Print version information and exit." short:"v"`
	Debug   bool `help:"Whether to enable debug logging."`

	Serve struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files for the region." type:"file"`
	} `cmd:"" help:"Start simulating a region."`

	Config struct {
		Resolved bool     `help:"Print the configuration after merging the given files and applying defaults."`
		Configs  []string `arg:"" optional:"" name:"configs" help:"Configuration files to resolve." type:"file"`
	} `cmd:"" help:"Write periscope's default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func configCommand() error {
	if !CLI.Config.Resolved {
		_, err := os.Stdout.Write(config.DEFAULT)
		return err
	}

	resolved, err := config.Process(CLI.Config.Configs)
	if err != nil {
		return err
	}

	out, err := resolved.YAML()
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(out)
	return err
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) == 1 {
		err := serveCommand([]string{})
		if err != nil {
			writeError(err)
		}
		return
	}

	ctx := kong.Parse(&CLI,
		kong.Name("periscope"),
		kong.Description("a region avatar locomotion simulator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf(
			"periscope %s (commit %s)\n",
			version.Version,
			version.GitCommit,
		)
		fmt.Printf(
			"built %s\n",
			version.BuildTime,
		)
		os.Exit(0)
	}

	switch ctx.Command() {
	case "serve":
		fallthrough
	case "serve <configs>":
		err := serveCommand(CLI.Serve.Configs)
		if err != nil {
			writeError(err)
		}
	case "config":
		fallthrough
	case "config <configs>":
		err := configCommand()
		if err != nil {
			writeError(err)
		}
	}
}
