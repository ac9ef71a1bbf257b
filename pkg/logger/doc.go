// Package logger provides a context-aware wrapper around Go's slog package with
// functional options, helper attribute constructors and transparent injection of
// values stored in context.Context.
//
// A single factory, New, returns a *slog.Logger. It picks slog.NewTextHandler or
// slog.NewJSONHandler based on the configured Format and, when extractors are
// registered, wraps it so every ContextExtractor runs before the record is
// written. The request id of an outgoing call is the typical extractor:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "authclient"),
//	    logger.WithContextExtractors(requestid.LogAttr),
//	)
//
//	log.InfoContext(ctx, "refresh completed",
//	    logger.Component("reauth"),
//	    logger.Duration(time.Since(start)),
//	)
//
// Attribute helpers such as Error and UserID return an empty slog.Attr for
// empty input, so callers can pass them unconditionally.
//
// Library packages default to Discard() and accept a logger through their own
// options; only the CLI builds a real one.
package logger
