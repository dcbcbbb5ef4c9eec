// Package handlers wires the tool packs into a dispatch server.
package handlers

import (
	"fmt"

	"github.com/MCPRUNNER/geostacMCP/pkg/config"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/bafu"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/basic"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/geobon"
	"github.com/MCPRUNNER/geostacMCP/pkg/handlers/planetary"
	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
)

// RegisterFunc binds one tool pack's handlers to a server.
type RegisterFunc func(srv *toolkit.Server, cfg config.Config) error

// Packs maps pack names, as they appear in the packs.enabled config list,
// to their registration functions.
var Packs = map[string]RegisterFunc{
	"basic":     basic.Register,
	"planetary": planetary.Register,
	"bafu":      bafu.Register,
	"geobon":    geobon.Register,
}

// PackNames returns the known pack names in registration order.
func PackNames() []string {
	return []string{"basic", "planetary", "bafu", "geobon"}
}

// RegisterEnabled binds every pack named by cfg.Packs.Enabled to srv. An
// unknown pack name is an error; an empty list registers nothing.
func RegisterEnabled(srv *toolkit.Server, cfg config.Config) error {
	for _, name := range cfg.Packs.Enabled {
		register, ok := Packs[name]
		if !ok {
			return fmt.Errorf("unknown tool pack %q", name)
		}
		if err := register(srv, cfg); err != nil {
			return fmt.Errorf("registering pack %s: %w", name, err)
		}
	}
	return nil
}
