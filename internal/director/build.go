package director

import (
	"github.com/tf2director/tf2director/internal/config"
	direrrors "github.com/tf2director/tf2director/internal/errors"
	"github.com/tf2director/tf2director/internal/server"
)

// Options converts a configured server into server.Options, filling in the
// settings shared by all servers.
func Options(cfg *config.Config, sc config.ServerConfig) server.Options {
	return server.Options{
		IP:            sc.IP,
		Port:          sc.Port,
		TVPort:        sc.TVPort,
		InitialMap:    sc.InitialMap,
		CfgFile:       sc.ServerConfig,
		MaxPlayers:    sc.MaxPlayers,
		SessionPrefix: cfg.Tmux.SessionPrefix,
		StopGrace:     cfg.Stop.StopGrace(),
		AppID:         cfg.Update.AppID,
	}
}

// Build constructs the servers selected by names (see config.Select).
// An install that fails to construct is skipped and its error returned
// alongside the servers that could be built, so the rest can still be acted
// on. An unknown name fails the whole selection.
func Build(cfg *config.Config, names []string, deps server.Deps) ([]*server.Server, error) {
	selected, err := cfg.Select(names)
	if err != nil {
		return nil, err
	}

	servers := make([]*server.Server, 0, len(selected))
	var errs []error
	for _, sc := range selected {
		s, err := server.New(sc.Name, sc.Path, Options(cfg, sc), deps)
		if err != nil {
			errs = append(errs, direrrors.Wrapf(err, "server %s", sc.Name))
			continue
		}
		servers = append(servers, s)
	}
	return servers, direrrors.Join(errs...)
}
