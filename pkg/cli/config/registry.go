package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/service/registry"
	"github.com/starlog-lab/starlog/pkg/service/source"
	"github.com/urfave/cli/v3"
)

// Registry holds the location of the figure registry file
type Registry struct {
	path string
}

func (x *Registry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "figures",
			Aliases:     []string{"f"},
			Usage:       "Figure registry TOML file, local path or gs://bucket/object",
			Category:    "Registry",
			Sources:     cli.EnvVars("STARLOG_FIGURES"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured registry location
func (x *Registry) Path() string {
	return x.path
}

// Configure loads the figures and builds the registry. A conflicting
// registry is an error; ingestion must not start on one.
func (x *Registry) Configure(ctx context.Context) (*registry.Registry, error) {
	if x.path == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "figure registry file is required", goerr.V(FlagKey, "figures"))
	}

	figures, err := source.LoadFigures(ctx, x.path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load figures", goerr.V(ValueKey, x.path))
	}

	reg, err := registry.Build(ctx, figures)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build figure registry", goerr.V(ValueKey, x.path))
	}
	return reg, nil
}
