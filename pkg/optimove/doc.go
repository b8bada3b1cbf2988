// Package optimove is the SDK entry point. It wires the bootstrap
// orchestrator, component registry, and delivery components behind a small
// facade: create an instance with New, initialize it once from remote or
// local configuration, then report events and identity updates.
//
// Basic usage:
//
//	sdk, err := optimove.New(source,
//		optimove.WithSettingsStore(store),
//		optimove.WithTransport(transport),
//	)
//	if err != nil {
//		return err
//	}
//	defer sdk.Close()
//
//	if err := sdk.InitializeFromRemote(ctx); err != nil {
//		return err
//	}
//	sdk.ReportEvent(ctx, event.New("checkout", map[string]any{"total": 99.5}))
//
// Initialization happens at most once per instance; events reported before
// it completes are dropped with a debug log.
package optimove
