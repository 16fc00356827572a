// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/opwvhk/intellij-plugin-avro-idl/config"
	"github.com/opwvhk/intellij-plugin-avro-idl/project"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

// globals holds the flags shared by every command, and the environment the
// commands run in.
type globals struct {
	configPath  string
	searchPaths []string
	noColor     bool
	verbose     bool

	fs        afero.Fs
	lookupEnv config.LookupFunc
	stdout    io.Writer
	stderr    io.Writer
}

func main() {
	g := &globals{
		fs:        afero.NewOsFs(),
		lookupEnv: os.LookupEnv,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	os.Exit(execute(context.Background(), g, os.Args[1:]))
}

func execute(ctx context.Context, g *globals, args []string) int {
	exitCode := 0
	avdlCmd := &cobra.Command{
		Use:   "avdl [options] COMMAND",
		Short: "Check and refactor Avro IDL files",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	avdlCmd.SetOut(g.stdout)
	avdlCmd.SetErr(g.stderr)
	avdlCmd.RunE = func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(g.stderr, avdlCmd.UsageString())
		exitCode = 1
		return nil
	}

	flags := avdlCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "configuration file (default "+config.DefaultFile+" if present)")
	flags.StringArrayVarP(&g.searchPaths, "search-path", "I", nil, "additional directory to look up imports in")
	flags.BoolVar(&g.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log import loading")

	commands := []command{
		&cmdCheck{globals: g},
		&cmdTokens{globals: g},
		&cmdTree{globals: g},
		&cmdSymbols{globals: g},
		&cmdComplete{globals: g},
		&cmdRename{globals: g},
		&cmdDelete{globals: g},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			RunE: func(_ *cobra.Command, args []string) error {
				exitCode = cmd.run(ctx, args)
				return nil
			},
		}
		avdlCmd.AddCommand(cobraCmd)
		cmd.flags(cobraCmd.Flags())
	}

	avdlCmd.SetArgs(args)
	if err := avdlCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(g.stderr, err)
		return 1
	}
	return exitCode
}

// load reads the configuration, with the search paths given on the command
// line appended.
func (g *globals) load() (*config.Config, logrus.FieldLogger, error) {
	cfg, err := config.Load(g.fs, g.configPath, g.lookupEnv)
	if err != nil {
		return nil, nil, err
	}
	cfg.SearchPaths = append(cfg.SearchPaths, g.searchPaths...)

	logger := logrus.New()
	logger.SetOutput(g.stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    g.noColor,
		DisableTimestamp: true,
	})
	logger.SetLevel(cfg.Level())
	if g.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, logger, nil
}

// openProject opens the named files and waits until their imports are
// loaded. It returns one URI per distinct file. The caller must close the
// project.
func (g *globals) openProject(ctx context.Context, paths []string) (*project.Project, []string, error) {
	cfg, logger, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	p := project.New(cfg.Resolver(g.fs), cfg.ProjectOptions(logger)...)

	uris := make([]string, 0, len(paths))
	for _, path := range paths {
		uri, text, err := g.readFile(path)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		if slices.Contains(uris, uri) {
			continue
		}
		p.Open(uri, text)
		uris = append(uris, uri)
	}
	if err := p.WaitIdle(ctx); err != nil {
		p.Close()
		return nil, nil, err
	}
	return p, uris, nil
}

func (g *globals) fail(err error) int {
	fmt.Fprintln(g.stderr, err)
	return 1
}
