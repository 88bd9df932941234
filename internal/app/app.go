// Package app wires config into the runtime both binaries share: telemetry, the persisted
// session, the response cache and the API client.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"savings-admin/console/internal/apiclient"
	"savings-admin/console/internal/audit"
	"savings-admin/console/internal/cache"
	"savings-admin/console/internal/config"
	"savings-admin/console/internal/security"
	"savings-admin/console/internal/session"
	"savings-admin/console/internal/telemetry"
	"savings-admin/console/internal/telemetry/loki"
	telemetryotel "savings-admin/console/internal/telemetry/otel"
)

// Runtime is the assembled session-and-cache context.
type Runtime struct {
	Config    *config.Config
	Providers *telemetryotel.Providers
	Storage   *session.FileStorage
	Store     *session.Store
	// Cookies holds the mirrored accessToken cookie; nil when Options.Mirror was given.
	Cookies   *session.JarMirror
	Cache     *cache.Cache
	Client    *apiclient.Client
	Audit     *audit.Logger
}

// Options adjusts Build for one binary.
type Options struct {
	// Source tags audit events (e.g. "console", "dashboard").
	Source string
	// Mirror receives the accessToken cookie. Nil mirrors it into a jar for the API origin
	// that the client's HTTP requests use.
	Mirror session.CookieMirror
}

// Build creates the runtime from cfg and hydrates the session from the session file.
// Call Shutdown when done.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	providers, err := telemetryotel.FromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()

	emitters := telemetry.MultiEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if lk := loki.NewEmitter(cfg.LokiURL); lk != nil {
		emitters = append(emitters, lk)
	}
	auditLog := audit.NewLogger(emitters, opts.Source)

	var sealer *security.Sealer
	if cfg.SessionSecret != "" {
		sealer, err = security.NewSealer(cfg.SessionSecret)
		if err != nil {
			_ = providers.Shutdown(ctx)
			return nil, err
		}
	}
	mirror := opts.Mirror
	var jar *session.JarMirror
	if mirror == nil {
		jar, err = session.NewJarMirror(cfg.APIBaseURL)
		if err != nil {
			_ = providers.Shutdown(ctx)
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		mirror = jar
	}
	storage := session.NewFileStorage(cfg.SessionFilePath(), sealer)
	store := session.NewStore(storage, mirror)
	store.Hydrate()

	clientOpts := []apiclient.Option{
		apiclient.WithTimeout(cfg.HTTPTimeoutDuration()),
		apiclient.WithTracerProvider(providers.TracerProvider),
		apiclient.WithMeterProvider(providers.MeterProvider),
		apiclient.WithAuditLogger(auditLog),
	}
	if jar != nil {
		clientOpts = append(clientOpts, apiclient.WithCookieJar(jar.Jar()))
	}
	c := cache.New(cache.WithMatchMode(cfg.InvalidationMode()))
	client := apiclient.New(cfg.APIBaseURL, store, c, clientOpts...)

	return &Runtime{
		Config:    cfg,
		Providers: providers,
		Storage:   storage,
		Store:     store,
		Cookies:   jar,
		Cache:     c,
		Client:    client,
		Audit:     auditLog,
	}, nil
}

// WatchSession follows changes another process makes to the session file: the store is
// re-hydrated and, when the token changed, every cached response is dropped. Blocks until ctx
// is done.
func (r *Runtime) WatchSession(ctx context.Context) error {
	return session.Watch(ctx, r.Storage.Path(), r.Store, r.Client.ClearAllCache)
}

// Shutdown waits for in-flight audit emits, then flushes and stops the telemetry providers.
// drain is normally telemetry.ShutdownDrainDuration; 0 skips the wait.
func (r *Runtime) Shutdown(ctx context.Context, drain time.Duration) {
	if drain > 0 {
		telemetry.Drain(drain)
	}
	if r.Providers == nil {
		return
	}
	if err := r.Providers.Shutdown(ctx); err != nil {
		log.Printf("app: telemetry shutdown: %v", err)
	}
}
