package rine

import (
	"context"
	"fmt"
	"io"
)

// Run creates the window and GPU context, builds the application from desc
// and drives the loop until it exits. Setup failures are returned wrapped in
// one of ErrWindowCreation, ErrSurfaceCreation, ErrNoAdapter, ErrNoDevice or
// ErrAppCreation. Loop termination follows Loop.Run.
func Run(ctx context.Context, platform Platform, desc Descriptor, opts ...Option) error {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}
	propagateLogger(platform)
	log := Logger()

	wcfg := windowConfigOf(desc, o.window)
	if o.config.VSync != nil {
		wcfg.VSync = *o.config.VSync
	}

	window, err := platform.CreateWindow(wcfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWindowCreation, err)
	}
	defer closeLogged(window, "window")

	surface, err := platform.CreateSurface(window)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceCreation, err)
	}

	adapterOpts := o.config.AdapterOptions()
	adapterOpts.CompatibleSurface = surface
	adapter, err := platform.RequestAdapter(ctx, adapterOpts)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}
	logAdapter(log, adapter)

	devDesc := Negotiate(adapter, requirementsOf(desc), wcfg.Title)
	device, queue, err := adapter.RequestDevice(ctx, devDesc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	defer device.Destroy()
	log.Info("rine: device created", "label", devDesc.Label)

	cfg := DefaultSurfaceConfiguration(surface.PreferredFormat(adapter), window.InnerSize(), wcfg.VSync)
	sc, err := NewSurfaceContext(window, surface, adapter, device, queue, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSurfaceCreation, err)
	}

	app, err := desc.Create(sc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAppCreation, err)
	}
	if c, ok := app.(io.Closer); ok {
		defer closeLogged(c, "application")
	}

	var ov Overlay
	if o.overlay != nil {
		ov, err = o.overlay(sc)
		if err != nil {
			return fmt.Errorf("rine: create overlay: %w", err)
		}
		propagateLogger(ov)
	}

	loop := NewLoop(sc, app, ov)
	err = loop.Run(ctx, platform)
	if o.onExit != nil {
		o.onExit(loop.Stats())
	}
	return err
}

func closeLogged(c io.Closer, what string) {
	if err := c.Close(); err != nil {
		Logger().Warn("rine: close "+what, "error", err)
	}
}
