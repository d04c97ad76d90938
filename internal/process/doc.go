// Package process provides subprocess lifecycle management for
// pipe-connected workers.
//
// The supervised process is not a detached daemon: the parent talks to
// it over stdin/stdout. Each launch hands the fresh pipes to the
// OnStart callback, and an unexpected exit triggers a relaunch at a
// constant interval, so a crashing worker keeps being retried at the
// same cadence.
//
// Features:
//   - Start/stop subprocess with graceful shutdown (SIGTERM then SIGKILL)
//   - Automatic relaunch on exit at a constant interval
//   - stdin/stdout pipes delivered through OnStart, stderr logged
//   - Context-based cancellation for clean shutdown
//
// Example usage:
//
//	sup := process.New(process.Config{
//	    Name:          "pidcc",
//	    Binary:        "/usr/local/bin/pidcc",
//	    RestartOnExit: true,
//	    RestartDelay:  5 * time.Second,
//	    OnStart: func(stdin io.WriteCloser, stdout io.ReadCloser) {
//	        // attach the protocol link to the new pipes
//	    },
//	})
//
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Stop()
package process
