// Package host runs a tilegrid runtime in an Ebitengine window.
//
// A [Game] is both the ebiten game and the runtime's renderer: each tick
// the runtime's render step turns occupied cells into vertex quads using
// the same cell rectangles the picker resolves against, and ebiten's draw
// callback submits them in one triangle batch.
//
//	g := host.NewGame(800, 600)
//	rt, err := tilegrid.NewRuntime(cfg, world, g)
//	g.Attach(rt)
//	err = host.Run(g, host.RunConfig{Title: "tilegrid"})
package host
