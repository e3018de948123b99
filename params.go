package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

type commandParams struct {
	configFile     string
	projects       []string
	filters        framework.RegexFilters
	debug          bool
	debugAll       bool
	noWebServer    bool
	deleteTestUser bool
	noBrowser      bool
}

func (c *commandParams) addConfigFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configFile, "config", "c", "", "config file (default is "+config.DefaultFileName+" if present)")
	fs.StringSliceVarP(&c.projects, "project", "p", nil, "run only the named project(s) of the matrix")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for everything, including passing tests")
}

func (c *commandParams) addRunFlags(fs *pflag.FlagSet) {
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.noWebServer, "no-webserver", false, "do not start the configured web servers")
}

func (c *commandParams) addTeardownFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.deleteTestUser, "delete-test-user", false, "also delete the test user")
	fs.BoolVar(&c.noBrowser, "no-browser", false, "call the backend directly instead of through a browser session")
}

// loadConfig reads the configuration for env and narrows it to the selected projects.
func (c *commandParams) loadConfig(env config.Env) (config.Config, error) {
	cfg, err := config.Load(c.configFile, env)
	if err != nil {
		return cfg, err
	}
	return cfg.SelectProjects(c.projects)
}

func (c *commandParams) debugLogger() framework.Logger {
	if c.debugAll {
		return log.New(os.Stdout, "", log.LstdFlags)
	}
	return framework.NullLogger()
}

func (c *commandParams) deleteTestUserEnabled(cfg config.Config) bool {
	return c.deleteTestUser || cfg.Cleanup.DeleteTestUser
}
