// Package log provides protocol capture for the onboarding engine.
//
// It is separate from operational logging (slog): a capture is a complete,
// machine-readable trace of every frame the engine accepted, rejected or
// emitted, every session phase change, role upgrade and CCE change.
//
// Configure capture through the engine config:
//
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	fl, _ := log.NewFileLogger("/var/log/ec/node.eclog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Capture files are a stream of CBOR encoded Events with integer keys.
// The ec-log tool views, filters and summarizes them.
package log
