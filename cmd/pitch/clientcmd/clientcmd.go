// Package clientcmd holds the setup shared by commands that talk to a
// running pitch server: API target resolution and the CLI's active session.
package clientcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/api/client"
	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/config"
	"github.com/papercomputeco/pitch/pkg/dotdir"
)

// Env is the resolved environment of a client command.
type Env struct {
	Config    *config.Config
	ConfigDir string
	Target    string
	Client    *client.Client
}

// AddTargetFlag registers --api-target on cmd.
func AddTargetFlag(cmd *cobra.Command, target *string) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, target)
}

// Load resolves config (flag > PITCH_* env > config.toml > defaults) and
// builds an API client for the resulting target.
func Load(cmd *cobra.Command) (*Env, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPITarget})

	cfg := config.FromViper(v)

	c, err := client.New(cfg.Client.APITarget)
	if err != nil {
		return nil, err
	}

	return &Env{
		Config:    cfg,
		ConfigDir: configDir,
		Target:    cfg.Client.APITarget,
		Client:    c,
	}, nil
}

// Session returns the active session on the env's target. A new one is
// opened (and persisted) when none is saved, when the saved one belongs to
// another server, or when fresh is set. greeting is only set for a new
// session.
func (e *Env) Session(ctx context.Context, fresh bool) (id, greeting string, err error) {
	ddm := dotdir.NewManager()

	if !fresh {
		state, err := ddm.LoadSession(e.ConfigDir)
		if err != nil {
			return "", "", err
		}
		if state != nil && state.ID != "" && state.Target == e.Target {
			return state.ID, "", nil
		}
	}

	resp, err := e.Client.NewSession(ctx)
	if err != nil {
		return "", "", err
	}

	err = ddm.SaveSession(&dotdir.SessionState{
		ID:        resp.SessionID,
		Target:    e.Target,
		StartedAt: time.Now(),
	}, e.ConfigDir)
	if err != nil {
		return "", "", err
	}

	return resp.SessionID, resp.Greeting, nil
}

// ForgetSession drops the saved session so the next command starts fresh.
func (e *Env) ForgetSession() error {
	return dotdir.NewManager().ClearSession(e.ConfigDir)
}

// Output describes where a command writes and how it should render.
type Output struct {
	W     io.Writer
	Plain bool
	Width int
}

// OutputFor inspects cmd's output writer. Anything that is not a colour
// terminal renders plain.
func OutputFor(cmd *cobra.Command) Output {
	w := cmd.OutOrStdout()
	out := Output{W: w, Plain: true, Width: 100}
	if f, ok := w.(*os.File); ok {
		out.Plain = cliui.Plain(f)
		out.Width = cliui.Width(f, out.Width)
	}
	return out
}
