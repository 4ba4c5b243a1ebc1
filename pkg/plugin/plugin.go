// Package plugin registers the opencode provider with a host.
package plugin

import (
	"errors"
	"fmt"

	"github.com/zerosync-co/opencode-provider/internal/models"
	"github.com/zerosync-co/opencode-provider/internal/provider"
	"github.com/zerosync-co/opencode-provider/pkg/host"
)

const ID = "opencode"

var ErrNoRegistry = errors.New("plugin: context has no registry")

// Schema describes the settings the host collects for this provider.
func Schema() host.ConfigSchema {
	options := make([]host.FieldOption, len(models.SupportedModels))
	for i, m := range models.SupportedModels {
		options[i] = host.FieldOption{Label: m.Name, Value: string(m.ID)}
	}
	return host.ConfigSchema{
		Title: "OpenCode",
		Fields: []host.Field{
			{
				Key:         "serverUrl",
				Label:       "Server URL",
				Type:        host.FieldText,
				Description: "URL of a running opencode server",
				Required:    true,
				Default:     provider.DefaultServerURL,
			},
			{
				Key:         "model",
				Label:       "Model",
				Type:        host.FieldSelect,
				Description: "Model used when a query names none",
				Default:     string(models.DefaultModel),
				Options:     options,
			},
		},
	}
}

type Plugin struct {
	opts []provider.Option
	ctx  *Context
}

func New(opts ...provider.Option) *Plugin {
	return &Plugin{opts: opts}
}

// Init registers the provider and its schema. On failure everything
// registered so far is released.
func (p *Plugin) Init(ctx *Context) error {
	if ctx == nil || ctx.Registry == nil {
		return ErrNoRegistry
	}
	p.ctx = ctx
	log := ctx.logger().With("plugin", ID)

	opts := append([]provider.Option{provider.WithLogger(log)}, p.opts...)
	unregister, err := ctx.Registry.RegisterProvider(ID, provider.New(opts...))
	if err != nil {
		return fmt.Errorf("register provider: %w", err)
	}
	ctx.Defer("provider", unregister)

	unregister, err = ctx.Registry.RegisterConfigSchema(ID, Schema())
	if err != nil {
		ctx.Release()
		return fmt.Errorf("register config schema: %w", err)
	}
	ctx.Defer("config schema", unregister)

	log.Info("plugin initialized")
	return nil
}

func (p *Plugin) Shutdown() {
	if p.ctx == nil {
		return
	}
	p.ctx.Release()
	p.ctx.logger().Info("plugin shut down", "plugin", ID)
}
