// Package logging provides structured logging for cwlens on top of log/slog.
//
// A Logger is built from configuration and hands out a *slog.Logger for
// components:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactSecrets: true})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger.Slog())
//
// # Context Fields
//
// Request-scoped identifiers travel on the context and are added to every
// record logged with a *Context method:
//
//	ctx = logging.WithSession(ctx, "sess-42")
//	ctx = logging.WithProfile(ctx, "p1")
//	logger.InfoContext(ctx, "snapshot applied", "turn", 7)
//	// {"msg":"snapshot applied","session":"sess-42","profile":"p1","turn":7}
//
// # Redaction
//
// With RedactSecrets enabled, bearer tokens and key-like values are masked,
// and attributes whose key names a secret (token, authorization, api_key,
// password) are replaced outright.
package logging
