// Package logging provides structured logging for tf2director runs.
//
// Every invocation of tf2director appends JSON lines to a debug log so an
// operator can reconstruct what happened to each server afterwards: which
// session was created, which chat commands were sent, how long steamcmd ran.
// The human-facing progress output printed to the terminal is separate and
// is not produced through this package.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.WithServer("alpha").WithOperation("stop").Info("warning sent", "delay_s", 10)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"warning sent","server":"alpha","operation":"stop","delay_s":10}
//
// # Log Rotation
//
// The debug log is rotated by size into numbered backups (tf2director.log.1
// is the newest). Game server console logs are a different thing: they are
// rotated by timestamp in package consolelog and never pruned.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
//
// For testing, use [NopLogger] to discard all log output.
package logging
